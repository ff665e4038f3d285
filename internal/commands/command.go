// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
	"todo/internal/todosync"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsService returns true if the command talks to the todo service.
	// Commands like help, version and serve return false.
	NeedsService() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// env.Config is always provided; env.Service is nil if NeedsService() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int
}

// Env is what a command runs against.
type Env struct {
	Config  *config.Config
	Service service.Service
	Logger  *slog.Logger
	// Flags is the parsed flag set, for commands that need Changed().
	Flags *pflag.FlagSet
}

// NewSync creates a sync client over env.Service configured from env.Config.
func (e *Env) NewSync(opts ...todosync.Option) *todosync.Client {
	base := []todosync.Option{
		todosync.WithLogger(e.Logger),
		todosync.WithRefreshAfterBulkFailure(e.Config.RefreshAfterBulkFailure),
		todosync.WithTimeout(e.Config.OperationTimeout),
	}
	return todosync.New(e.Service, append(base, opts...)...)
}

// changed reports whether the named flag was set on the command line.
func (e *Env) changed(name string) bool {
	return e.Flags != nil && e.Flags.Changed(name)
}

// reportSyncError prints a failed sync operation and returns its exit code.
func reportSyncError(errOut io.Writer, err error) int {
	if errors.Is(err, todosync.ErrNotFound) {
		fmt.Fprintf(errOut, "error: %v\n", errors.Unwrap(err))
		return exitcode.UserError
	}
	if errors.Is(err, service.ErrInvalidDraft) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.BackendError
}

// loadSync creates a sync client and fetches the current list.
func loadSync(ctx context.Context, env *Env, errOut io.Writer, opts ...todosync.Option) (*todosync.Client, int) {
	client := env.NewSync(opts...)
	if err := client.Refresh(ctx); err != nil {
		return nil, reportSyncError(errOut, err)
	}
	return client, exitcode.Success
}

func ok(env *Env, out io.Writer) int {
	if !env.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
