package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
	"todo/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	title       string
	description string
}

func (c *AddCmd) Name() string       { return "add" }
func (c *AddCmd) Aliases() []string  { return []string{"create"} }
func (c *AddCmd) Synopsis() string   { return "Create a todo" }
func (c *AddCmd) Usage() string      { return "todo add -d <description> <title...>" }
func (c *AddCmd) NeedsService() bool { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.title, "title", "t", "", "todo title")
	fs.StringVarP(&c.description, "description", "d", "", "todo description")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := c.title
	if len(args) > 0 {
		if title != "" {
			fmt.Fprintln(errOut, "error: cannot use both --title and a positional title")
			return exitcode.UserError
		}
		title = strings.Join(args, " ")
	}

	draft := service.Draft{Title: title, Description: c.description}
	if err := service.ValidateDraft(draft); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// The list is not needed to append, so no refresh first.
	client := env.NewSync()
	if err := client.Create(ctx, draft.Title, draft.Description); err != nil {
		return reportSyncError(errOut, err)
	}

	if !env.Config.Quiet {
		tasks := client.Tasks()
		fmt.Fprintf(out, "ok %d\n", tasks[len(tasks)-1].ID)
	}
	return exitcode.Success
}
