package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fedsql/fedsql/lifecycle"
	"github.com/fedsql/fedsql/pkg/charm"
	"github.com/fedsql/fedsql/pkg/display"
)

var SubmitSpec = &charm.Spec{
	Name:  "submit",
	Usage: "submit [-endpoint name] [-user name] [-no-wait] [query text...]",
	Short: "submit a query or named endpoint and print its result",
	Long: `
submit assigns a request id, runs the query in the background, and by
default blocks with a live-refreshing status line until the request leaves
IN_PROGRESS, then prints the spill-file JSON to standard output. With
-no-wait it prints the request id immediately and returns.
`,
	New: NewSubmitCommand,
}

type submitCommand struct {
	*RootCommand
	endpoint string
	user     string
	noWait   bool
}

func NewSubmitCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &submitCommand{RootCommand: parent.(*RootCommand)}
	f.StringVar(&c.endpoint, "endpoint", "", "submit the named endpoint instead of inline query text")
	f.StringVar(&c.user, "user", "", "authenticated username recorded on the request")
	f.BoolVar(&c.noWait, "no-wait", false, "print the request id and return immediately")
	return c, nil
}

func (c *submitCommand) Run(args []string) error {
	app, err := c.App()
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	if query == "" && c.endpoint == "" {
		return fmt.Errorf("submit: either query text or -endpoint is required")
	}
	id := app.Manager.Submit(query, "", c.endpoint, c.user)
	if c.noWait {
		fmt.Println(id)
		return nil
	}
	return c.waitAndPrint(app, id)
}

func (c *submitCommand) waitAndPrint(app *App, id string) error {
	d := display.New(&pollDisplayer{manager: app.Manager, id: id, started: time.Now()}, 200*time.Millisecond)
	d.Run()

	req, ok := app.Manager.Poll(id)
	if !ok {
		return fmt.Errorf("submit: request %s vanished while waiting", id)
	}
	if req.Status == lifecycle.Failed {
		return fmt.Errorf("request %s failed: %s", id, req.Error)
	}
	body, err := app.Manager.GetResult(id)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(body, '\n'))
	return err
}

// pollDisplayer repaints the elapsed time and status of an IN_PROGRESS
// request, per the ambient CLI stack's live-polling requirement.
type pollDisplayer struct {
	manager *lifecycle.Manager
	id      string
	started time.Time
}

func (p *pollDisplayer) Display(w io.Writer) bool {
	req, ok := p.manager.Poll(p.id)
	if !ok {
		fmt.Fprintf(w, "request %s: not found\n", p.id)
		return false
	}
	if req.Status == lifecycle.InProgress {
		fmt.Fprintf(w, "%s: IN_PROGRESS (%s elapsed)\n", p.id, time.Since(p.started).Round(time.Millisecond))
		return true
	}
	fmt.Fprintf(w, "%s: %s\n", p.id, req.Status)
	return false
}
