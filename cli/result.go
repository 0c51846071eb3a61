package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/fedsql/fedsql/pkg/charm"
)

var ResultSpec = &charm.Spec{
	Name:  "result",
	Usage: "result <request-id>",
	Short: "print a completed request's spill-file JSON",
	New:   NewResultCommand,
}

type resultCommand struct {
	*RootCommand
}

func NewResultCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	return &resultCommand{RootCommand: parent.(*RootCommand)}, nil
}

func (c *resultCommand) Run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("result: exactly one request id required")
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	body, err := app.Manager.GetResult(args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(body, '\n'))
	return err
}
