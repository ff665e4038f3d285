package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
	"todo/internal/todosync"
)

func init() {
	Register(&ClearCmd{})
}

// ClearCmd implements the clear command: delete every completed todo.
type ClearCmd struct {
	heal bool
}

func (c *ClearCmd) Name() string       { return "clear" }
func (c *ClearCmd) Aliases() []string  { return nil }
func (c *ClearCmd) Synopsis() string   { return "Delete all completed todos" }
func (c *ClearCmd) Usage() string      { return "todo clear [--heal]" }
func (c *ClearCmd) NeedsService() bool { return true }

func (c *ClearCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.heal, "heal", false, "re-fetch the list if any delete fails")
}

func (c *ClearCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	var opts []todosync.Option
	if env.changed("heal") {
		opts = append(opts, todosync.WithRefreshAfterBulkFailure(c.heal))
	}
	client, code := loadSync(ctx, env, errOut, opts...)
	if client == nil {
		return code
	}

	before := len(client.Tasks())
	if err := client.RemoveCompleted(ctx); err != nil {
		return reportSyncError(errOut, err)
	}

	if !env.Config.Quiet {
		fmt.Fprintf(out, "deleted %d\n", before-len(client.Tasks()))
	}
	return exitcode.Success
}
