// Package ui is the interactive terminal front end over a todosync.Client.
//
// The model never holds todo state of its own. Every view is rendered
// from the client's snapshot. Every mutation is a tea.Cmd that calls the
// client and reports back with an opDoneMsg; state changes in between
// arrive as snapshotMsg.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"todo/internal/service"
	"todo/internal/todosync"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

type op int

const (
	opRefresh op = iota
	opCreate
	opToggle
	opEdit
	opRemove
	opRemoveCompleted
)

type opDoneMsg struct {
	op  op
	err error
}

// snapshotMsg carries the client state after every change.
type snapshotMsg todosync.Snapshot

// Model is the bubbletea model for the todo list.
type Model struct {
	ctx    context.Context
	client *todosync.Client
	keys   KeyMap

	snap   todosync.Snapshot
	cursor int

	mode    mode
	editID  int
	title   textinput.Model
	desc    textinput.Model
	focus   int
	invalid string
}

// New returns a model bound to client. ctx bounds every operation.
func New(ctx context.Context, client *todosync.Client) *Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = service.MaxTitleLen
	title.Width = service.MaxTitleLen

	desc := textinput.New()
	desc.Placeholder = "Description"
	desc.CharLimit = service.MaxDescriptionLen
	desc.Width = 60

	return &Model{
		ctx:    ctx,
		client: client,
		keys:   DefaultKeyMap,
		snap:   client.Snapshot(),
		title:  title,
		desc:   desc,
	}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ClientFactory builds the client the view runs over. The ui passes the
// option that streams state changes into the program.
type ClientFactory func(opts ...todosync.Option) *todosync.Client

// Run shows the list until the user quits or ctx is cancelled.
func Run(ctx context.Context, newClient ClientFactory, opts ...tea.ProgramOption) error {
	var program *tea.Program
	client := newClient(todosync.WithOnChange(func(s todosync.Snapshot) {
		program.Send(snapshotMsg(s))
	}))
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	program = tea.NewProgram(New(ctx, client), opts...)
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init loads the list.
func (m *Model) Init() tea.Cmd {
	return m.dispatch(opRefresh, m.client.Refresh)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		m.sync(m.client.Snapshot())
		if msg.err == nil && msg.op == opCreate && m.mode == modeAdd {
			m.closeForm()
		}
		if msg.err == nil && msg.op == opEdit && m.mode == modeEdit {
			m.closeForm()
		}
		return m, nil

	case snapshotMsg:
		m.sync(todosync.Snapshot(msg))
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeList {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.dispatch(opRefresh, m.client.Refresh)
	case key.Matches(msg, m.keys.Clear):
		return m, m.dispatch(opRemoveCompleted, m.client.RemoveCompleted)
	case key.Matches(msg, m.keys.Add):
		m.openForm(modeAdd, service.Task{})
	}

	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, m.dispatch(opToggle, func(ctx context.Context) error {
			return m.client.Toggle(ctx, task.ID)
		})
	case key.Matches(msg, m.keys.Delete):
		return m, m.dispatch(opRemove, func(ctx context.Context) error {
			return m.client.Remove(ctx, task.ID)
		})
	case key.Matches(msg, m.keys.Edit):
		m.openForm(modeEdit, task)
	}
	return m, nil
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, formCancel):
		m.closeForm()
		return m, nil
	case key.Matches(msg, formNext):
		m.setFocus(1 - m.focus)
		return m, nil
	case key.Matches(msg, formSubmit):
		return m, m.submit()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.desc, cmd = m.desc.Update(msg)
	}
	m.invalid = ""
	return m, cmd
}

// submit sends the form. Nothing is sent while the client is busy or
// while the draft is invalid.
func (m *Model) submit() tea.Cmd {
	if m.snap.Busy {
		return nil
	}

	var draft service.Draft
	if m.mode == modeEdit {
		current, ok := m.client.Find(m.editID)
		if !ok {
			m.closeForm()
			return nil
		}
		draft = current.Draft()
	}
	draft.Title = m.title.Value()
	draft.Description = m.desc.Value()

	if err := service.ValidateDraft(draft); err != nil {
		m.invalid = "title and description are required"
		return nil
	}

	if m.mode == modeAdd {
		return m.dispatch(opCreate, func(ctx context.Context) error {
			return m.client.Create(ctx, draft.Title, draft.Description)
		})
	}
	id := m.editID
	return m.dispatch(opEdit, func(ctx context.Context) error {
		return m.client.Edit(ctx, id, draft)
	})
}

// dispatch runs fn off the update loop.
func (m *Model) dispatch(o op, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: o, err: fn(ctx)}
	}
}

func (m *Model) sync(snap todosync.Snapshot) {
	m.snap = snap
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = max(len(m.snap.Tasks)-1, 0)
	}
}

func (m *Model) selected() (service.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Tasks) {
		return service.Task{}, false
	}
	return m.snap.Tasks[m.cursor], true
}

func (m *Model) openForm(md mode, task service.Task) {
	m.mode = md
	m.editID = task.ID
	m.title.SetValue(task.Title)
	m.desc.SetValue(task.Description)
	m.invalid = ""
	m.setFocus(0)
}

func (m *Model) closeForm() {
	m.mode = modeList
	m.editID = 0
	m.title.Reset()
	m.desc.Reset()
	m.title.Blur()
	m.desc.Blur()
	m.invalid = ""
}

func (m *Model) setFocus(i int) {
	m.focus = i
	if i == 0 {
		m.title.Focus()
		m.desc.Blur()
		return
	}
	m.desc.Focus()
	m.title.Blur()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Todo List"))
	b.WriteString("\n\n")

	if m.snap.Err != nil {
		b.WriteString(bannerStyle.Render(todosync.Message(m.snap.Err)))
		b.WriteString("\n\n")
	}

	if m.mode != modeList {
		b.WriteString(m.viewForm())
		b.WriteString("\n")
	}

	switch {
	case m.snap.Busy:
		b.WriteString(dimStyle.Render("Loading..."))
		b.WriteString("\n")
	case len(m.snap.Tasks) == 0:
		b.WriteString(dimStyle.Render("No todos found."))
		b.WriteString("\n")
	default:
		for i, task := range m.snap.Tasks {
			b.WriteString(m.viewTask(i, task))
		}
		if task, ok := m.selected(); ok && task.Description != "" {
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(task.Description))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m *Model) viewTask(i int, task service.Task) string {
	pointer := "  "
	if i == m.cursor {
		pointer = cursorStyle.Render("> ")
	}
	mark := "[ ]"
	title := task.Title
	if task.Done {
		mark = "[x]"
		title = doneStyle.Render(title)
	}
	return fmt.Sprintf("%s%s %s\n", pointer, mark, title)
}

func (m *Model) viewForm() string {
	heading := "Add todo"
	if m.mode == modeEdit {
		heading = "Edit todo"
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(heading))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", len([]rune(m.title.Value())), service.MaxTitleLen)))
	b.WriteString("\n")
	b.WriteString(m.desc.View())
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d", len([]rune(m.desc.Value())), service.MaxDescriptionLen)))
	b.WriteString("\n")
	if m.invalid != "" {
		b.WriteString(invalidStyle.Render(m.invalid))
		b.WriteString("\n")
	}
	hint := "enter save · tab switch field · esc cancel"
	if m.snap.Busy {
		hint = "saving disabled while loading"
	}
	b.WriteString(dimStyle.Render(hint))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) viewHelp() string {
	if m.mode != modeList {
		return ""
	}
	parts := make([]string, 0, len(m.keys.help()))
	for _, binding := range m.keys.help() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return dimStyle.Render(strings.Join(parts, " · "))
}
