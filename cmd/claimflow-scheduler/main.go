// Package main provides the ClaimFlow scheduler, the front door for
// date_time triggered workflows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/claimflow/claimflow/pkg/claims"
	"github.com/claimflow/claimflow/pkg/cmd"
	"github.com/claimflow/claimflow/pkg/engine"
	"github.com/claimflow/claimflow/pkg/log"
	"github.com/claimflow/claimflow/pkg/receivers/schedule"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("scheduler")

	command := &cli.Command{
		Name:                  "claimflow-scheduler",
		Usage:                 "Run scheduled claims workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing ClaimFlow scheduler")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "claimflow-scheduler", logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			reg, err := cmd.NewRegistry(logger, claims.NewClient(logger))
			if err != nil {
				return err
			}

			eng := engine.New(logger, store, reg).WithEventBus(eventBus)
			if err := cmd.RegisterRunWorkflow(reg, eng); err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			receiver := schedule.NewReceiver(eng, store.WorkflowRepository(), logger)
			if err := receiver.Start(runCtx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			logger.InfoContext(ctx, "Shutting down scheduler")
			cancel()

			return receiver.Stop(context.Background())
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Scheduler exited", "error", err)
		os.Exit(1)
	}
}
