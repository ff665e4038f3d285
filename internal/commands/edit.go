package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Fields not given keep their current value.
type EditCmd struct {
	title       string
	description string
	done        bool
	undone      bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a todo" }
func (c *EditCmd) Usage() string {
	return "todo edit <id> [--title <t>] [--description <d>] [--done|--undone]"
}
func (c *EditCmd) NeedsService() bool { return true }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.title, "title", "t", "", "new title")
	fs.StringVarP(&c.description, "description", "d", "", "new description")
	fs.BoolVar(&c.done, "done", false, "mark completed")
	fs.BoolVar(&c.undone, "undone", false, "mark pending")
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if c.done && c.undone {
		fmt.Fprintln(errOut, "error: cannot use both --done and --undone")
		return exitcode.UserError
	}

	client, code := loadSync(ctx, env, errOut)
	if client == nil {
		return code
	}

	current, found := client.Find(id)
	if !found {
		fmt.Fprintf(errOut, "error: todo not found: %d\n", id)
		return exitcode.UserError
	}

	draft := current.Draft()
	if env.changed("title") {
		draft.Title = c.title
	}
	if env.changed("description") {
		draft.Description = c.description
	}
	switch {
	case c.done:
		draft.Done = true
	case c.undone:
		draft.Done = false
	}

	if err := service.ValidateDraft(draft); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if err := client.Edit(ctx, id, draft); err != nil {
		return reportSyncError(errOut, err)
	}
	return ok(env, out)
}
