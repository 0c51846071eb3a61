package cli

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/fedsql/fedsql/lifecycle"
	"github.com/fedsql/fedsql/pkg/charm"
)

var ShellSpec = &charm.Spec{
	Name:  "shell",
	Usage: "shell [-user name]",
	Short: "interactive REPL: submit one query per line",
	Long: `
shell reads lines of query text, submitting and blocking on each in turn
and printing its result before prompting for the next. History is kept for
the session via up/down arrow.
`,
	New: NewShellCommand,
}

type shellCommand struct {
	*RootCommand
	user string
}

func NewShellCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &shellCommand{RootCommand: parent.(*RootCommand)}
	f.StringVar(&c.user, "user", "", "authenticated username recorded on each request")
	return c, nil
}

func (c *shellCommand) Run(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("shell: no arguments allowed")
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	rl := liner.NewLiner()
	defer rl.Close()
	for {
		line, err := rl.Prompt("fedsql> ")
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rl.AppendHistory(line)
		if err := c.runOne(app, line); err != nil {
			log.Println(err)
		}
	}
}

func (c *shellCommand) runOne(app *App, query string) error {
	id := app.Manager.Submit(query, "", "", c.user)
	for {
		req, ok := app.Manager.Poll(id)
		if !ok {
			return fmt.Errorf("request %s vanished", id)
		}
		if req.Status == lifecycle.InProgress {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if req.Status == lifecycle.Failed {
			return fmt.Errorf("%s", req.Error)
		}
		body, err := app.Manager.GetResult(id)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	}
}
