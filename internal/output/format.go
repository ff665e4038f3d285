// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/service"
)

const (
	// DoneMark and PendingMark prefix each title.
	DoneMark    = "[x]"
	PendingMark = "[ ]"

	// descriptionIndent aligns descriptions under the title column.
	descriptionIndent = "          "
)

// Filter selects which todos FormatList prints.
type Filter int

const (
	All Filter = iota
	OnlyDone
	OnlyPending
)

// Keep reports whether t passes the filter.
func (f Filter) Keep(t service.Task) bool {
	switch f {
	case OnlyDone:
		return t.Done
	case OnlyPending:
		return !t.Done
	default:
		return true
	}
}

// FormatTask writes one todo line.
// Format: "{ID:>4}  [x] {TITLE}\n" (4-wide right-aligned id, two spaces, mark, title)
func FormatTask(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", task.ID, mark(task.Done), normalizeTitle(task.Title))
}

// FormatTaskLong writes the todo line followed by its description, one
// indented line per description line.
func FormatTaskLong(w io.Writer, task service.Task) {
	FormatTask(w, task)
	desc := strings.ReplaceAll(task.Description, "\r", "")
	if strings.TrimSpace(desc) == "" {
		return
	}
	for _, line := range strings.Split(desc, "\n") {
		fmt.Fprintf(w, "%s%s\n", descriptionIndent, line)
	}
}

// FormatList writes every todo passing filter and returns how many were written.
func FormatList(w io.Writer, tasks []service.Task, filter Filter, long bool) int {
	n := 0
	for _, t := range tasks {
		if !filter.Keep(t) {
			continue
		}
		if long {
			FormatTaskLong(w, t)
		} else {
			FormatTask(w, t)
		}
		n++
	}
	return n
}

func mark(done bool) string {
	if done {
		return DoneMark
	}
	return PendingMark
}

// normalizeTitle normalizes a todo title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
