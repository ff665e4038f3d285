package commands

import (
	"errors"
	"testing"
)

func TestParseTaskID_Numeric(t *testing.T) {
	id, err := ParseTaskID([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 5 {
		t.Errorf("expected 5, got %d", id)
	}
}

func TestParseTaskID_HashPrefix(t *testing.T) {
	id, err := ParseTaskID([]string{"#12"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 12 {
		t.Errorf("expected 12, got %d", id)
	}
}

func TestParseTaskID_Missing(t *testing.T) {
	_, err := ParseTaskID(nil)
	if !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestParseTaskID_ExtraArgument(t *testing.T) {
	_, err := ParseTaskID([]string{"1", "2"})
	if err == nil {
		t.Fatal("expected error for extra argument")
	}
	expectedMsg := "unexpected argument: 2"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
}

func TestParseTaskID_Invalid(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-3", "1.5", "#", "١٢", ""} {
		_, err := ParseTaskID([]string{arg})
		if err == nil {
			t.Errorf("%q: expected error", arg)
			continue
		}
		expectedMsg := "invalid todo id: " + arg
		if err.Error() != expectedMsg {
			t.Errorf("expected %q, got %q", expectedMsg, err.Error())
		}
	}
}
