package todosync

import (
	"errors"

	"todo/internal/service"
)

var (
	// ErrNotFound is returned when an operation names an id that is not in the local list.
	ErrNotFound = errors.New("todo not found")

	// ErrInvalidDraft is returned by Create for a blank title or description.
	ErrInvalidDraft = service.ErrInvalidDraft
)

// Kind classifies a failed operation. A Kind is itself an error so callers
// can test with errors.Is(err, todosync.EditFailed).
type Kind int

const (
	FetchFailed Kind = iota + 1
	CreateFailed
	UpdateFailed
	EditFailed
	DeleteFailed
	BulkDeleteFailed
)

var kindMessages = map[Kind]string{
	FetchFailed:      "Failed to fetch todos",
	CreateFailed:     "Failed to add todo",
	UpdateFailed:     "Failed to update todo",
	EditFailed:       "Failed to edit todo",
	DeleteFailed:     "Failed to delete todo",
	BulkDeleteFailed: "Failed to delete completed todos",
}

var kindNames = map[Kind]string{
	FetchFailed:      "FetchFailed",
	CreateFailed:     "CreateFailed",
	UpdateFailed:     "UpdateFailed",
	EditFailed:       "EditFailed",
	DeleteFailed:     "DeleteFailed",
	BulkDeleteFailed: "BulkDeleteFailed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Message is the text shown in the error banner.
func (k Kind) Message() string {
	if s, ok := kindMessages[k]; ok {
		return s
	}
	return "Operation failed"
}

func (k Kind) Error() string { return k.Message() }

// Error is the failure of one sync operation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Message()
	}
	return e.Kind.Message() + ": " + e.Err.Error()
}

// Message returns the banner text without the cause.
func (e *Error) Message() string { return e.Kind.Message() }

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Message returns the banner text for err: the Kind message for sync
// failures, err.Error() otherwise, and "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}
