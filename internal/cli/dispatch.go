package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"todo/internal/commands"
	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/service"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Service, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// Flags require a command.
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	baseURL   string
	timeout   time.Duration
	quiet     bool
	debug     bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configDir, "config", "", "config directory")
	fs.StringVar(&c.baseURL, "url", "", "todo service base URL")
	fs.DurationVar(&c.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	fs.BoolVarP(&c.quiet, "quiet", "q", false, "suppress informational output")
	fs.BoolVar(&c.debug, "debug", false, "debug logging")
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var common commonFlags
	common.register(fs)
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(out, "Usage: %s\n\n%s\n", cmd.Usage(), fs.FlagUsages())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	cfg, err := config.New(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ConfigError
	}
	if common.baseURL != "" {
		cfg.SetBaseURL(common.baseURL)
	}
	if fs.Changed("timeout") {
		if common.timeout <= 0 {
			fmt.Fprintf(errOut, "error: timeout must be positive: %s\n", common.timeout)
			return exitcode.UserError
		}
		cfg.Timeout = common.timeout
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	logger, err := newLogger(cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ConfigError
	}

	env := &commands.Env{
		Config: cfg,
		Logger: logger,
		Flags:  fs,
	}

	if cmd.NeedsService() {
		if d.factory == nil {
			fmt.Fprintln(errOut, "error: no todo service configured")
			return exitcode.BackendError
		}
		svc, err := d.factory(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(errOut, "error: backend error: %v\n", err)
			return exitcode.BackendError
		}
		env.Service = svc
	}

	return cmd.Run(ctx, env, fs.Args(), out, errOut)
}

// newLogger returns a slog logger that renders through charmbracelet/log on w.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level := log.DebugLevel
	if !cfg.Debug {
		var err error
		level, err = log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q", cfg.LogLevel)
		}
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          config.AppName,
		ReportTimestamp: cfg.Debug,
	})
	return slog.New(handler), nil
}
