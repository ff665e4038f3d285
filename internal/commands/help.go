package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"todo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{registry: DefaultRegistry})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "todo help" }
func (c *HelpCmd) NeedsService() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, c.text())
	return exitcode.Success
}

func (c *HelpCmd) text() string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	b.WriteString("  todo                                 List todos\n")
	registry := c.registry
	if registry == nil {
		registry = DefaultRegistry
	}
	for _, cmd := range registry.All() {
		fmt.Fprintf(&b, "  %-36s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	b.WriteString(commonFlagsHelp)
	return b.String()
}

const commonFlagsHelp = `
Common flags:
  --config <dir>       Override config directory
  --url <base>         Todo service base URL (default http://localhost:8000)
  --timeout <dur>      Per-request timeout (default 5s)
  --quiet              Suppress informational output
  --debug              Print debug logs to stderr
`
