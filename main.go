package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/AnaEHC/semaforo-app/config"
	"github.com/AnaEHC/semaforo-app/di"
	services "github.com/AnaEHC/semaforo-app/service"
	"github.com/AnaEHC/semaforo-app/util"
)

type flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

func main() {
	var (
		f         flags
		logCloser = func() {}
		container *di.Container
	)

	app := &cli.Command{
		Name:  "semaforo",
		Usage: "Track new clients through their three-day intake window",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SEMAFORO_CONFIG"),
				Value:       "semaforo.yaml",
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SEMAFORO_LOG_LEVEL"),
				Value:       "info",
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stdout)",
				Sources:     cli.EnvVars("SEMAFORO_LOG_FILE"),
				Destination: &f.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := util.NewLogger(f.LogLevel, f.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(f.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			container, err = di.NewContainer(ctx, cfg)
			if err != nil {
				return ctx, fmt.Errorf("init container: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if container != nil {
				container.Close()
			}
			logCloser()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API with the periodic lifecycle sweep",
				Action: func(ctx context.Context, c *cli.Command) error {
					if _, err := container.LifecycleRefresherService.RunSweep(ctx); err != nil {
						log.Warn().Err(err).Msg("initial sweep failed")
					}

					sweepCtx, cancel := context.WithCancel(ctx)
					defer cancel()
					container.LifecycleRefresherService.StartPeriodicJob(sweepCtx, container.Config.Sweep.Interval)

					return container.SemaforoHttpServer.Start(ctx)
				},
			},
			{
				Name:  "sweep",
				Usage: "run one lifecycle sweep and print its report",
				Action: func(ctx context.Context, c *cli.Command) error {
					report, err := container.LifecycleRefresherService.RunSweep(ctx)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(c.Root().Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				},
			},
			{
				Name:  "status",
				Usage: "print the derived status of every client",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "include clients whose window has closed",
					},
					&cli.StringFlag{
						Name:  "cal",
						Usage: "only clients of this coordinator",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					rows, err := container.SemaforoService.Summaries(ctx, services.ClientFilter{
						Cal:            c.String("cal"),
						IncludeExpired: c.Bool("all"),
					})
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "CLIENTE\tCAL\tENTRADA\tDIAS\tSEMAFORO\tCIERRE")
					for _, s := range rows {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", s.ClientID, s.Cal, s.EntryDate, s.BusinessDays, s.Status.Label(), s.WindowClose)
					}
					return w.Flush()
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("semaforo failed")
		os.Exit(1)
	}
}
