// Package cmd assembles the corridors-server binary: an urfave/cli app
// wrapping one "serve" command that builds and runs the fx.App, the way
// the teacher's cmd/cmd.go wraps its own "server" command.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	ServiceName      = "corridors-server"
	ServiceNamespace = "corridors"
)

var (
	version    = "0.0.0"
	commit     = "hash"
	commitDate = time.Now().String()
)

// Run parses os.Args and executes the matched command.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Corridors game server core: MCTS search, session management, real-time fan-out",
		Commands: []*cli.Command{
			serveCmd(),
		},
	}
	return app.Run(os.Args)
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the game server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			app := NewApp(c.String("config"))

			startCtx, cancel := context.WithTimeout(c.Context, 15*time.Second)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}
