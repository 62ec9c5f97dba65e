package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kauppa/kauppa-sub001/pkg/config"
	"github.com/kauppa/kauppa-sub001/pkg/di"
	"github.com/kauppa/kauppa-sub001/pkg/logging"
	"github.com/kauppa/kauppa-sub001/pkg/server"
)

const name = "kauppa"

var envFileFlag = &cli.StringSliceFlag{
	Name:  "env-file",
	Value: []string{".env"},
	Usage: "Dotenv files loaded before the environment is decoded; missing files are skipped",
}

var serviceFlag = &cli.StringFlag{
	Name:  "service",
	Usage: "Service to run (overrides KAUPPA_SERVICE)",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:  name,
		Usage: "Commerce entity services",
		Commands: []*cli.Command{
			serveCmd(),
			routesCmd(),
		},
	}
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.StringSlice("env-file")...)
	if err != nil {
		return cfg, err
	}
	if s := cmd.String("service"); s != "" {
		cfg.Service = s
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the configured services over HTTP",
		Flags: []cli.Flag{envFileFlag, serviceFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.SetDefault(name, cfg.Version, cfg.LogLevel)

			app, err := di.Build(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			defer app.Close()

			srv := server.New(cfg.Address(), app.Handler(), server.Options{
				ReadTimeout:     cfg.ReadTimeout,
				WriteTimeout:    cfg.WriteTimeout,
				ShutdownTimeout: cfg.ShutdownTimeout,
				Logger:          logger,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Serve(gctx)
			})
			g.Go(func() error {
				ticker := time.NewTicker(50 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-ticker.C:
						if srv.Ready() {
							logger.Info("serving",
								"addr", srv.Addr(),
								"service", cfg.Service,
								"routes", len(app.Routes()),
								"store", cfg.StoreDriver)
							return nil
						}
					}
				}
			})
			return g.Wait()
		},
	}
}

func routesCmd() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "Print the routes the configured services would serve",
		Flags: []cli.Flag{envFileFlag, serviceFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.StoreDriver = "memory"
			cfg.LogLevel = "error"

			app, err := di.Build(ctx, cfg, logging.New(name, cfg.Version, cfg.LogLevel))
			if err != nil {
				return err
			}
			defer app.Close()

			for _, r := range app.Routes() {
				fmt.Printf("%-7s %s\n", r.Method, r.Pattern)
			}
			return nil
		},
	}
}
