package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"placefeeds/internal/domain"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Метод для поиска места по id
func (s *Storage) PlaceByID(ctx context.Context, id int64) (domain.Place, error) {
	query, args := placeQuery("p.id", id)
	return s.place(ctx, query, args)
}

// Метод для поиска места по slug
func (s *Storage) PlaceBySlug(ctx context.Context, slug string) (domain.Place, error) {
	query, args := placeQuery("p.slug", slug)
	return s.place(ctx, query, args)
}

func (s *Storage) place(ctx context.Context, query string, args []any) (domain.Place, error) {
	place, err := scanPlace(s.DB.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Place{}, domain.ErrNotFound
		}
		s.log.Error("Failed to get place from database", slog.Any("error", err))
		return domain.Place{}, fmt.Errorf("unable to scan row: %w", err)
	}
	return place, nil
}

// Метод для сохранения нового места
func (s *Storage) InsertPlace(ctx context.Context, place domain.Place) (int64, error) {
	query, args := insertPlaceQuery(place, time.Now().UTC())
	var id int64
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert place %q: %w", place.Slug, err)
	}
	return id, nil
}

// Метод для выборки мест с числом лент
func (s *Storage) ListPlaces(ctx context.Context, search string) ([]domain.Place, error) {
	query, args := placesListQuery(search)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("Failed to read places from database", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read places from database: %w", err)
	}
	defer rows.Close()

	places := []domain.Place{}
	for rows.Next() {
		var feeds int64
		place, err := scanPlace(rows, &feeds)
		if err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		place.Feeds = int(feeds)
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	return places, nil
}

// scanPlace читает колонки placeColumns, extra - дополнительные колонки после них.
func scanPlace(row pgx.Row, extra ...any) (domain.Place, error) {
	var (
		place                      domain.Place
		parent                     pgtype.Int8
		adminID, description, link pgtype.Text
		coords                     pgtype.Point
		created, updated           pgtype.Timestamp
	)
	dest := []any{
		&place.ID,
		&place.Name,
		&place.Slug,
		&parent,
		&adminID,
		&coords,
		&description,
		&link,
		&created,
		&updated,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Place{}, err
	}

	place.ParentID = parent.Int64
	place.AdministrativeID = adminID.String
	place.Description = description.String
	place.Link = link.String
	place.Created = timeOf(created)
	place.Updated = timeOf(updated)
	if coords.Valid {
		place.Coords = &domain.Coordinates{Lat: coords.P.X, Lon: coords.P.Y}
	}
	return place, nil
}

// Метод для поиска ленты по адресу источника
func (s *Storage) FeedBySource(ctx context.Context, source string) (domain.StoredFeed, error) {
	query, args := feedBySourceQuery(source)
	feed, err := scanListedFeed(s.DB.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredFeed{}, domain.ErrNotFound
		}
		s.log.Error("Failed to get feed from database", slog.Any("error", err), slog.String("source", source))
		return domain.StoredFeed{}, fmt.Errorf("unable to scan row: %w", err)
	}
	return feed, nil
}

// Метод для сохранения новой ленты
func (s *Storage) InsertFeed(ctx context.Context, feed domain.StoredFeed) (int64, error) {
	query, args := insertFeedQuery(feed, time.Now().UTC())
	var id int64
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert feed %q: %w", feed.Source, err)
	}
	return id, nil
}

// Метод для выборки лент, включая выключенные
func (s *Storage) ListFeeds(ctx context.Context, filter domain.ListFilter) ([]domain.StoredFeed, error) {
	query, args := feedsListQuery(filter)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("Failed to read feeds from database", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read feeds from database: %w", err)
	}
	defer rows.Close()

	feeds := []domain.StoredFeed{}
	for rows.Next() {
		feed, err := scanListedFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feeds: %w", err)
	}
	return feeds, nil
}

func scanListedFeed(row pgx.Row) (domain.StoredFeed, error) {
	var (
		feed                      domain.StoredFeed
		placeID                   pgtype.Int8
		description, source, link pgtype.Text
		lastFetch                 pgtype.Timestamp
	)
	err := row.Scan(
		&feed.ID,
		&placeID,
		&feed.Title,
		&feed.Slug,
		&description,
		&source,
		&link,
		&lastFetch,
		&feed.Enabled,
	)
	if err != nil {
		return domain.StoredFeed{}, err
	}
	feed.PlaceID = placeID.Int64
	feed.Description = description.String
	feed.Source = source.String
	feed.Link = link.String
	feed.LastFetch = timeOf(lastFetch)
	return feed, nil
}

// Метод для выборки записей лент, новые первыми
func (s *Storage) ListItems(ctx context.Context, filter domain.ListFilter) ([]domain.ItemListing, error) {
	query, args := itemsListQuery(filter)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("Failed to read items from database", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read items from database: %w", err)
	}
	defer rows.Close()

	items := []domain.ItemListing{}
	for rows.Next() {
		var (
			item        domain.ItemListing
			title, link pgtype.Text
			pubDate     pgtype.Timestamp
		)
		if err := rows.Scan(&item.ID, &item.FeedID, &item.PlaceID, &title, &pubDate, &link); err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		item.Title = title.String
		item.Link = link.String
		item.PubDate = timeOf(pubDate)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func nullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func point(c *domain.Coordinates) any {
	if c == nil {
		return nil
	}
	return pgtype.Point{P: pgtype.Vec2{X: c.Lat, Y: c.Lon}, Valid: true}
}
