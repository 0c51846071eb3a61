package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fedsql/fedsql/pkg/charm"
)

var PollSpec = &charm.Spec{
	Name:  "poll",
	Usage: "poll <request-id>",
	Short: "print a request's current metadata",
	New:   NewPollCommand,
}

type pollCommand struct {
	*RootCommand
}

func NewPollCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	return &pollCommand{RootCommand: parent.(*RootCommand)}, nil
}

func (c *pollCommand) Run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("poll: exactly one request id required")
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	req, ok := app.Manager.Poll(args[0])
	if !ok {
		return fmt.Errorf("poll: unknown request id: %s", args[0])
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(req)
}
