package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fedsql/fedsql/pkg/charm"
)

var PlanSpec = &charm.Spec{
	Name:  "plan",
	Usage: "plan <request-id>",
	Short: "print a request's query-plan step trail",
	New:   NewPlanCommand,
}

type planCommand struct {
	*RootCommand
}

func NewPlanCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	return &planCommand{RootCommand: parent.(*RootCommand)}, nil
}

func (c *planCommand) Run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("plan: exactly one request id required")
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	steps, err := app.Manager.GetQueryPlan(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(steps)
}
