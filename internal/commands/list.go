package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
	"todo/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. `todo` with no args runs it too.
type ListCmd struct {
	done    bool
	pending bool
	long    bool
}

func (c *ListCmd) Name() string       { return "list" }
func (c *ListCmd) Aliases() []string  { return []string{"ls"} }
func (c *ListCmd) Synopsis() string   { return "List todos" }
func (c *ListCmd) Usage() string      { return "todo list [--done|--pending] [--long]" }
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.done, "done", false, "only completed todos")
	fs.BoolVar(&c.pending, "pending", false, "only pending todos")
	fs.BoolVarP(&c.long, "long", "l", false, "include descriptions")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.done && c.pending {
		fmt.Fprintln(errOut, "error: cannot use both --done and --pending")
		return exitcode.UserError
	}

	client, code := loadSync(ctx, env, errOut)
	if client == nil {
		return code
	}

	filter := output.All
	switch {
	case c.done:
		filter = output.OnlyDone
	case c.pending:
		filter = output.OnlyPending
	}

	n := output.FormatList(out, client.Tasks(), filter, c.long)
	if n == 0 && !env.Config.Quiet {
		fmt.Fprintln(out, "no todos found")
	}
	return exitcode.Success
}
