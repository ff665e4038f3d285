package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
	"todo/internal/todosync"
	"todo/internal/ui"
)

func init() {
	Register(&TUICmd{})
}

// TUICmd starts the interactive terminal interface.
type TUICmd struct {
	busyOnToggle bool
}

func (c *TUICmd) Name() string       { return "tui" }
func (c *TUICmd) Aliases() []string  { return nil }
func (c *TUICmd) Synopsis() string   { return "Interactive todo list" }
func (c *TUICmd) Usage() string      { return "todo tui [--busy-on-toggle]" }
func (c *TUICmd) NeedsService() bool { return true }

func (c *TUICmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.busyOnToggle, "busy-on-toggle", false, "show the loading state while toggling")
}

func (c *TUICmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if !ui.IsTTY(out) {
		fmt.Fprintln(errOut, "error: tui requires a terminal")
		return exitcode.UserError
	}

	// Log lines would tear the alternate screen.
	if !env.Config.Debug {
		env.Logger = slog.New(slog.DiscardHandler)
	}

	newClient := func(opts ...todosync.Option) *todosync.Client {
		return env.NewSync(append(opts, todosync.WithBusyOnToggle(c.busyOnToggle))...)
	}
	if err := ui.Run(ctx, newClient); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
