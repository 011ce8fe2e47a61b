package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"placefeeds/internal/domain"
	"placefeeds/internal/usecase"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

func printRun(ctx *cli.Context, res usecase.RunResult) {
	w := ctx.App.Writer
	for _, f := range res.Feeds {
		line := fmt.Sprintf("%-6d %-14s new=%d updated=%d unchanged=%d failed=%d images=%d",
			f.FeedID, f.Outcome, f.New, f.Updated, f.Unchanged, f.Failed, len(f.Images))
		if f.Err != nil {
			line += " error=" + f.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "feeds=%d updated=%d not_modified=%d fetch_failed=%d parse_failed=%d in %s\n",
		len(res.Feeds),
		res.Count(usecase.OutcomeUpdated),
		res.Count(usecase.OutcomeNotModified),
		res.Count(usecase.OutcomeFetchFailed),
		res.Count(usecase.OutcomeParseFailed),
		res.Finished.Sub(res.Started).Round(time.Millisecond),
	)
}

const (
	formatTable      = "table"
	formatJSON       = "json"
	formatJSONPretty = "json-pretty"
)

const timeLayout = "2006-01-02 15:04"

func outputFormat(ctx *cli.Context) (string, error) {
	format := strings.ToLower(strings.TrimSpace(ctx.String("format")))
	switch format {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatJSONPretty:
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q", ctx.String("format"))
}

func writeJSON(w io.Writer, format string, v any) error {
	enc := json.NewEncoder(w)
	if format == formatJSONPretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeTable печатает строки, разделенные табуляцией, выровненными колонками.
func writeTable(w io.Writer, header string, rows []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, row := range rows {
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func printPlace(w io.Writer, format string, p domain.Place) error {
	if format != formatTable {
		return writeJSON(w, format, p)
	}
	coords := ""
	if p.Coords != nil {
		coords = p.Coords.String()
	}
	return writeTable(w, "KEY\tVALUE", []string{
		"ID\t" + formatID(p.ID),
		"Name\t" + p.Name,
		"Slug\t" + p.Slug,
		"Parent\t" + formatID(p.ParentID),
		"Coordinates\t" + coords,
		"Link\t" + p.Link,
		"Description\t" + p.Description,
	})
}

func printPlaces(w io.Writer, format string, places []domain.Place) error {
	if format != formatTable {
		return writeJSON(w, format, places)
	}
	rows := lo.Map(places, func(p domain.Place, _ int) string {
		coords := ""
		if p.Coords != nil {
			coords = p.Coords.String()
		}
		return strings.Join([]string{
			formatID(p.ID), p.Name, p.Slug, formatID(p.ParentID), p.AdministrativeID,
			coords, p.Link, strconv.Itoa(p.Feeds), formatTime(p.Created), formatTime(p.Updated),
		}, "\t")
	})
	return writeTable(w, "ID\tNAME\tSLUG\tPARENT\tADMIN ID\tCOORDS\tLINK\tFEEDS\tCREATED\tUPDATED", rows)
}

type addedFeed struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Items       int    `json:"items"`
	Images      int    `json:"images"`
}

func printAddedFeed(w io.Writer, format string, res usecase.AddFeedResult) error {
	out := addedFeed{
		ID:          res.Feed.ID,
		Title:       res.Feed.Title,
		Slug:        res.Feed.Slug,
		Source:      res.Feed.Source,
		Link:        res.Feed.Link,
		Description: res.Feed.Description,
		Items:       res.Items,
		Images:      res.Images,
	}
	if format != formatTable {
		return writeJSON(w, format, out)
	}
	return writeTable(w, "KEY\tVALUE", []string{
		"ID\t" + formatID(out.ID),
		"Title\t" + out.Title,
		"Slug\t" + out.Slug,
		"Source\t" + out.Source,
		"Link\t" + out.Link,
		"Description\t" + out.Description,
		"Items\t" + strconv.Itoa(out.Items),
		"Images\t" + strconv.Itoa(out.Images),
	})
}

type listedFeed struct {
	ID        int64     `json:"id"`
	PlaceID   int64     `json:"place_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	LastFetch time.Time `json:"last_fetch"`
	Enabled   bool      `json:"enabled"`
}

func printFeeds(w io.Writer, format string, feeds []domain.StoredFeed) error {
	if format != formatTable {
		return writeJSON(w, format, lo.Map(feeds, func(f domain.StoredFeed, _ int) listedFeed {
			return listedFeed{ID: f.ID, PlaceID: f.PlaceID, Slug: f.Slug, Title: f.Title, Link: f.Link, LastFetch: f.LastFetch, Enabled: f.Enabled}
		}))
	}
	rows := lo.Map(feeds, func(f domain.StoredFeed, _ int) string {
		return strings.Join([]string{
			formatID(f.ID), formatID(f.PlaceID), f.Slug, f.Title, f.Link,
			formatTime(f.LastFetch), strconv.FormatBool(f.Enabled),
		}, "\t")
	})
	return writeTable(w, "ID\tPLACE\tSLUG\tTITLE\tLINK\tLAST FETCH\tENABLED", rows)
}

func printItems(w io.Writer, format string, items []domain.ItemListing) error {
	if format != formatTable {
		return writeJSON(w, format, items)
	}
	rows := lo.Map(items, func(i domain.ItemListing, _ int) string {
		return strings.Join([]string{
			formatID(i.ID), formatID(i.FeedID), formatID(i.PlaceID), i.Title, formatTime(i.PubDate), i.Link,
		}, "\t")
	})
	return writeTable(w, "ID\tFEED\tPLACE\tTITLE\tPUBLISHED\tLINK", rows)
}
