package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"placefeeds/internal/app"
	"placefeeds/internal/domain"
	"placefeeds/internal/usecase"

	"github.com/urfave/cli/v2"
)

var errFeedAndPlace = errors.New("--feed and --place can not be used together")

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, json or json-pretty",
		Value:   formatTable,
	}
}

// withApp собирает приложение и вызывает fn с контекстом, который
// отменяется по SIGINT/SIGTERM.
func withApp(ctx *cli.Context, fn func(context.Context, *app.App) error) error {
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(runCtx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(runCtx, a)
}

func placesCmd() *cli.Command {
	return &cli.Command{
		Name:  "places",
		Usage: "Manage places",
		Subcommands: []*cli.Command{
			placesAddCmd(),
			placesListCmd(),
		},
	}
}

func placesAddCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a new place",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Name of the place", Required: true},
			&cli.StringFlag{Name: "slug", Usage: "Slug of the place, derived from the name if empty"},
			&cli.Int64Flag{Name: "parent", Usage: "ID of the parent place"},
			&cli.StringFlag{Name: "coordinates", Usage: `Coordinates as "lat;lon"`},
			&cli.StringFlag{Name: "link", Usage: "Website of the place"},
			&cli.StringFlag{Name: "description", Usage: "Description of the place"},
			&cli.StringFlag{Name: "administrative-id", Usage: "Official municipality key"},
			formatFlag(),
		},
		Action: func(ctx *cli.Context) error {
			place, err := placeFromFlags(ctx)
			if err != nil {
				return err
			}
			format, err := outputFormat(ctx)
			if err != nil {
				return err
			}

			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				added, err := a.AddPlace(runCtx, place)
				if err != nil {
					return err
				}
				return printPlace(ctx.App.Writer, format, added)
			})
		},
	}
}

func placeFromFlags(ctx *cli.Context) (domain.Place, error) {
	place := domain.Place{
		Name:             ctx.String("name"),
		Slug:             ctx.String("slug"),
		ParentID:         ctx.Int64("parent"),
		Link:             ctx.String("link"),
		Description:      ctx.String("description"),
		AdministrativeID: ctx.String("administrative-id"),
	}
	if ctx.IsSet("coordinates") {
		coords, err := domain.ParseCoordinates(ctx.String("coordinates"))
		if err != nil {
			return domain.Place{}, err
		}
		place.Coords = &coords
	}
	return place, nil
}

func placesListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List places",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Usage: "Only places whose name or slug contains this text"},
			formatFlag(),
		},
		Action: func(ctx *cli.Context) error {
			format, err := outputFormat(ctx)
			if err != nil {
				return err
			}
			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				places, err := a.ListPlaces(runCtx, ctx.String("search"))
				if err != nil {
					return err
				}
				return printPlaces(ctx.App.Writer, format, places)
			})
		},
	}
}

func feedsAddCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Fetch a feed, store it with its items and extract item images",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "place", Usage: "ID of the place the feed belongs to", Required: true},
			&cli.StringFlag{Name: "url", Usage: "URL of the RSS feed", Required: true},
			&cli.StringFlag{Name: "title", Usage: "Overrides the feed title"},
			&cli.StringFlag{Name: "slug", Usage: "Overrides the slug derived from the title"},
			&cli.StringFlag{Name: "description", Usage: "Overrides the feed description"},
			formatFlag(),
		},
		Action: func(ctx *cli.Context) error {
			format, err := outputFormat(ctx)
			if err != nil {
				return err
			}
			req := usecase.AddFeedRequest{
				PlaceID:     ctx.Int64("place"),
				URL:         ctx.String("url"),
				Title:       ctx.String("title"),
				Slug:        ctx.String("slug"),
				Description: ctx.String("description"),
			}
			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				res, err := a.AddFeed(runCtx, req)
				if err != nil {
					return err
				}
				for guid, msg := range res.ImageErrors {
					fmt.Fprintf(ctx.App.ErrWriter, "warning: image of %s: %s\n", guid, msg)
				}
				return printAddedFeed(ctx.App.Writer, format, res)
			})
		},
	}
}

func feedsListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List feeds",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Usage: "Only feeds whose slug or title contains this text"},
			&cli.Int64Flag{Name: "place", Usage: "Only feeds of the place with this id"},
			formatFlag(),
		},
		Action: func(ctx *cli.Context) error {
			format, err := outputFormat(ctx)
			if err != nil {
				return err
			}
			filter := domain.ListFilter{Search: ctx.String("search"), PlaceID: ctx.Int64("place")}
			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				feeds, err := a.ListFeeds(runCtx, filter)
				if err != nil {
					return err
				}
				return printFeeds(ctx.App.Writer, format, feeds)
			})
		},
	}
}

func feedsListItemsCmd() *cli.Command {
	return &cli.Command{
		Name:  "list-items",
		Usage: "List stored items, newest first",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "feed", Usage: "Only items of the feed with this id"},
			&cli.Int64Flag{Name: "place", Usage: "Only items of feeds of the place with this id"},
			&cli.StringFlag{Name: "search", Usage: "Only items whose title or description contains this text"},
			formatFlag(),
		},
		Action: func(ctx *cli.Context) error {
			filter, err := itemFilterFromFlags(ctx)
			if err != nil {
				return err
			}
			format, err := outputFormat(ctx)
			if err != nil {
				return err
			}
			return withApp(ctx, func(runCtx context.Context, a *app.App) error {
				items, err := a.ListItems(runCtx, filter)
				if err != nil {
					return err
				}
				return printItems(ctx.App.Writer, format, items)
			})
		},
	}
}

func itemFilterFromFlags(ctx *cli.Context) (domain.ListFilter, error) {
	filter := domain.ListFilter{
		Search:  ctx.String("search"),
		FeedID:  ctx.Int64("feed"),
		PlaceID: ctx.Int64("place"),
	}
	if filter.FeedID > 0 && filter.PlaceID > 0 {
		return domain.ListFilter{}, errFeedAndPlace
	}
	return filter, nil
}

func databaseCmd() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "Manage the database schema",
		Subcommands: []*cli.Command{
			migrateCmd(),
			rollbackCmd(),
			{
				Name:  "reset",
				Usage: "Roll back all database migrations",
				Action: func(ctx *cli.Context) error {
					cfg, log, err := setup(ctx)
					if err != nil {
						return err
					}
					return app.Reset(cfg, log)
				},
			},
			{
				Name:  "refresh",
				Usage: "Roll back migrations and apply them again",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "steps",
						Aliases: []string{"s"},
						Usage:   "Number of migrations to roll back, 0 means all",
					},
				},
				Action: func(ctx *cli.Context) error {
					steps := ctx.Int("steps")
					if steps < 0 {
						return fmt.Errorf("--steps must not be negative, got %d", steps)
					}
					cfg, log, err := setup(ctx)
					if err != nil {
						return err
					}
					return app.Refresh(cfg, steps, log)
				},
			},
		},
	}
}
