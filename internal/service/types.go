package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxTitleLen is the maximum title length in characters.
	MaxTitleLen = 50

	// MaxDescriptionLen is the maximum description length in characters.
	MaxDescriptionLen = 250
)

// ErrInvalidDraft is returned for a draft that fails validation.
var ErrInvalidDraft = errors.New("invalid todo")

// Task is a single todo as stored by the remote collection.
type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// Draft carries the writable fields of a todo (create and full edit).
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// Draft returns the writable fields of t.
func (t Task) Draft() Draft {
	return Draft{Title: t.Title, Description: t.Description, Done: t.Done}
}

// Blank reports whether title or description is empty after trimming.
func (d Draft) Blank() bool {
	return strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Description) == ""
}

// ValidateDraft checks the client-side limits: title and description must be
// non-empty after trimming, and their untrimmed length must not exceed
// MaxTitleLen and MaxDescriptionLen characters.
func ValidateDraft(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidDraft)
	}
	if n := utf8.RuneCountInString(d.Title); n > MaxTitleLen {
		return fmt.Errorf("%w: title too long (%d > %d characters)", ErrInvalidDraft, n, MaxTitleLen)
	}
	if n := utf8.RuneCountInString(d.Description); n > MaxDescriptionLen {
		return fmt.Errorf("%w: description too long (%d > %d characters)", ErrInvalidDraft, n, MaxDescriptionLen)
	}
	return nil
}
