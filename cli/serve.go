package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fedsql/fedsql/pkg/charm"
	"github.com/fedsql/fedsql/telemetry"
)

var ServeSpec = &charm.Spec{
	Name:  "serve",
	Usage: "serve [-addr host:port] [-sweep-interval duration]",
	Short: "run the expiry sweeper and the ops HTTP surface (/healthz, /metrics)",
	Long: `
serve is the long-running process mode: it runs the lifecycle manager's
expiry sweep on a timer and serves /healthz and /metrics for operators.
It does not serve the query API — submit/poll/result/plan remain Go-level
contracts driven through this same binary's other subcommands.
`,
	New: NewServeCommand,
}

type serveCommand struct {
	*RootCommand
	addr          string
	sweepInterval time.Duration
}

func NewServeCommand(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &serveCommand{RootCommand: parent.(*RootCommand)}
	f.StringVar(&c.addr, "addr", ":8899", "address for the ops HTTP surface")
	f.DurationVar(&c.sweepInterval, "sweep-interval", time.Minute, "how often to run the expiry sweep")
	return c, nil
}

func (c *serveCommand) Run(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("serve: no arguments allowed")
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.Manager.RunSweeper(ctx, c.sweepInterval)

	handler := telemetry.OpsHandler(app.Prom, func() error { return nil })
	srv := &http.Server{Addr: c.addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("ops surface listening", zap.String("addr", c.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
