package cli

import (
	"flag"

	"github.com/fedsql/fedsql/pkg/charm"
)

// Root is the top-level command tree: submit a query or named endpoint,
// poll its status, fetch its result, inspect its plan, or drive either an
// interactive shell or the ops HTTP surface.
var Root = &charm.Spec{
	Name:  "fedsql",
	Usage: "fedsql [-config path] <command> [options] [arguments...]",
	Short: "federated SQL query engine",
	Long: `
fedsql submits restricted-dialect SQL queries (or named endpoints) against
configured relational, file, and web-api data sources, then polls, fetches,
or explains the resulting request.
`,
	New: NewRootCommand,
}

func init() {
	Root.Add(charm.Help)
	Root.Add(SubmitSpec)
	Root.Add(PollSpec)
	Root.Add(ResultSpec)
	Root.Add(PlanSpec)
	Root.Add(ShellSpec)
	Root.Add(ServeSpec)
}

// RootCommand holds the global -config flag and lazily bootstraps the App
// the first time a subcommand needs it, so "fedsql help" works without a
// valid configuration file on disk.
type RootCommand struct {
	configPath string
	app        *App
}

func NewRootCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &RootCommand{}
	f.StringVar(&c.configPath, "config", "fedsql.yaml", "path to the YAML configuration file")
	return c, nil
}

func (c *RootCommand) Run(args []string) error {
	return charm.ErrNoRun
}

// App returns the bootstrapped application, constructing it on first call.
func (c *RootCommand) App() (*App, error) {
	if c.app == nil {
		app, err := Bootstrap(c.configPath)
		if err != nil {
			return nil, err
		}
		c.app = app
	}
	return c.app, nil
}
