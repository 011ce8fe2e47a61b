package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"placefeeds/internal/app"
	"placefeeds/internal/domain"
	"placefeeds/internal/infrastructure/config"
	"placefeeds/internal/infrastructure/logger"

	"github.com/urfave/cli/v2"
)

var errNoSelection = errors.New("use one of --all, --place, --slug, --id")

func main() {
	if err := rootApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootApp() *cli.App {
	return &cli.App{
		Name:  "placefeeds",
		Usage: "Update RSS feeds assigned to places",
		Description: `Fetches RSS 2.0 feeds stored in PostgreSQL, stores new and
		changed items and extracts og:image metadata from item pages.

		Flags can be set via environment variables, e.g.:

		--config => PLACEFEEDS_CONFIG=config.yaml
		--all => PLACEFEEDS_UPDATE_ALL=true
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"PLACEFEEDS_CONFIG"},
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			migrateCmd(),
			rollbackCmd(),
			databaseCmd(),
			placesCmd(),
			feedsCmd(),
			serveCmd(),
		},
	}
}

// setup читает конфигурацию и создает логгер.
func setup(ctx *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(slog.String("app", cfg.GetAppName())), nil
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Action: func(ctx *cli.Context) error {
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			return app.Migrate(cfg, log)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Roll back the last database migration",
		Action: func(ctx *cli.Context) error {
			cfg, log, err := setup(ctx)
			if err != nil {
				return err
			}
			return app.Rollback(cfg, log)
		},
	}
}

func feedsCmd() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "Manage feeds",
		Subcommands: []*cli.Command{
			feedsAddCmd(),
			feedsListCmd(),
			feedsListItemsCmd(),
			updateCmd(),
		},
	}
}

func updateCmd() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Fetch feeds and store new or changed items",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Usage:   "Update all enabled feeds",
				EnvVars: []string{"PLACEFEEDS_UPDATE_ALL"},
			},
			&cli.Int64Flag{
				Name:    "place",
				Usage:   "Update feeds of the place with this id",
				EnvVars: []string{"PLACEFEEDS_UPDATE_PLACE"},
			},
			&cli.StringFlag{
				Name:    "slug",
				Usage:   "Update feeds of the place with this slug",
				EnvVars: []string{"PLACEFEEDS_UPDATE_SLUG"},
			},
			&cli.Int64Flag{
				Name:    "id",
				Usage:   "Update a single feed by id",
				EnvVars: []string{"PLACEFEEDS_UPDATE_ID"},
			},
		},
		Action: func(ctx *cli.Context) error {
			sel := selectorFromFlags(ctx)
			if err := sel.Validate(); err != nil {
				return errNoSelection
			}

			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				res, err := a.Update(runCtx, sel)
				if err != nil {
					return err
				}
				printRun(ctx, res)
				return nil
			})
		},
	}
}

func selectorFromFlags(ctx *cli.Context) domain.Selector {
	return domain.Selector{
		All:       ctx.Bool("all"),
		FeedID:    ctx.Int64("id"),
		PlaceID:   ctx.Int64("place"),
		PlaceSlug: ctx.String("slug"),
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve status and metrics, updating all feeds periodically",
		Action: func(ctx *cli.Context) error {
			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				return a.Serve(runCtx)
			})
		},
	}
}
