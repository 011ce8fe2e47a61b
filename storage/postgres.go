package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"placefeeds/internal/domain"
	"placefeeds/internal/infrastructure/config"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Storage struct {
	DB  *pgxpool.Pool
	log *slog.Logger
}

func NewStorage(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (*Storage, error) {
	log = log.With(slog.String("component", "storage"))

	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established",
		slog.String("host", cfg.Host),
		slog.String("db", cfg.DBName),
	)
	return &Storage{
		DB:  db,
		log: log,
	}, nil
}

func (s *Storage) Close() {
	s.log.Info("Closing database connection pool")
	s.DB.Close()
}

// Метод для выборки лент, которые нужно обновить
func (s *Storage) FeedsForUpdate(ctx context.Context, sel domain.Selector) ([]domain.StoredFeed, error) {
	query, args := feedsQuery(sel)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("Failed to read feeds from database", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read feeds from database: %w", err)
	}
	defer rows.Close()

	feeds := []domain.StoredFeed{}
	for rows.Next() {
		var (
			feed                     domain.StoredFeed
			source, link, etag       pgtype.Text
			lastBuildDate, lastFetch pgtype.Timestamp
			data                     []byte
		)
		err = rows.Scan(
			&feed.ID,
			&feed.Title,
			&feed.Slug,
			&source,
			&link,
			&etag,
			&lastBuildDate,
			&lastFetch,
			&feed.Enabled,
			&data,
		)
		if err != nil {
			s.log.Error("Failed to scan row", slog.Any("error", err))
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		feed.Source = source.String
		feed.Link = link.String
		feed.ETag = etag.String
		feed.LastBuildDate = timeOf(lastBuildDate)
		feed.LastFetch = timeOf(lastFetch)
		if feed.Data, err = decodeData(data); err != nil {
			return nil, fmt.Errorf("feed %d: %w", feed.ID, err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feeds: %w", err)
	}

	return feeds, nil
}

// Метод для поиска записи по GUID во всех лентах
func (s *Storage) ItemByGUID(ctx context.Context, guid string) (domain.StoredItem, error) {
	query := `SELECT id, "feedId", guid, title, description, author, link, "pubDate", data FROM items WHERE guid = $1;`

	var (
		item                             domain.StoredItem
		title, description, author, link pgtype.Text
		pubDate                          pgtype.Timestamp
		data                             []byte
	)
	err := s.DB.QueryRow(ctx, query, guid).Scan(
		&item.ID,
		&item.FeedID,
		&item.GUID,
		&title,
		&description,
		&author,
		&link,
		&pubDate,
		&data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredItem{}, domain.ErrNotFound
		}
		s.log.Error("Failed to get item from database",
			slog.Any("error", err),
			slog.String("guid", guid),
		)
		return domain.StoredItem{}, fmt.Errorf("unable to scan row: %w", err)
	}

	item.Title = title.String
	item.Description = description.String
	item.Author = author.String
	item.Link = link.String
	item.PubDate = timeOf(pubDate)
	if item.Data, err = decodeData(data); err != nil {
		return domain.StoredItem{}, fmt.Errorf("item %q: %w", guid, err)
	}
	return item, nil
}

// Метод для сохранения новой записи
func (s *Storage) InsertItem(ctx context.Context, item domain.StoredItem) (int64, error) {
	query := `
	INSERT INTO items ("feedId", guid, title, description, author, link, "pubDate")
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id;
	`
	var id int64
	err := s.DB.QueryRow(ctx, query,
		item.FeedID,
		item.GUID,
		nullString(item.Title),
		nullString(item.Description),
		nullString(item.Author),
		nullString(item.Link),
		nullTime(item.PubDate),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item %q: %w", item.GUID, err)
	}
	return id, nil
}

// Метод для обновления полей записи. Принадлежность ленте не меняется.
func (s *Storage) UpdateItem(ctx context.Context, item domain.StoredItem) error {
	query := `
	UPDATE items SET title = $1, description = $2, author = $3, link = $4, "pubDate" = $5
	WHERE guid = $6;
	`
	tag, err := s.DB.Exec(ctx, query,
		nullString(item.Title),
		nullString(item.Description),
		nullString(item.Author),
		nullString(item.Link),
		nullTime(item.PubDate),
		item.GUID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %q: %w", item.GUID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %q: %w", item.GUID, domain.ErrNotFound)
	}
	return nil
}

// Метод для записи метаданных изображения в data->'image'.
// Остальные ключи data сохраняются.
func (s *Storage) UpdateItemImage(ctx context.Context, guid string, img domain.Image) error {
	raw, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	query := `
	UPDATE items SET data = COALESCE(data, '{}'::jsonb) || jsonb_build_object($1::text, $2::jsonb)
	WHERE guid = $3;
	`
	tag, err := s.DB.Exec(ctx, query, domain.ImageKey, string(raw), guid)
	if err != nil {
		return fmt.Errorf("failed to store image of item %q: %w", guid, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %q: %w", guid, domain.ErrNotFound)
	}
	return nil
}

// Метод для сохранения состояния загрузки ленты
func (s *Storage) UpdateFeedFetchState(ctx context.Context, feedID int64, etag string, lastBuildDate, lastFetch time.Time) error {
	query := `UPDATE feeds SET etag = $1, "lastBuildDate" = $2, "lastFetch" = $3, updated = $3 WHERE id = $4;`
	tag, err := s.DB.Exec(ctx, query, nullString(etag), nullTime(lastBuildDate), nullTime(lastFetch), feedID)
	if err != nil {
		s.log.Error("Failed to update feed", slog.Any("error", err), slog.Int64("feedID", feedID))
		return fmt.Errorf("failed to update feed %d: %w", feedID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("feed %d: %w", feedID, domain.ErrNotFound)
	}
	return nil
}

// Метод для отметки времени проверки ленты без изменений
func (s *Storage) TouchFeed(ctx context.Context, feedID int64, lastFetch time.Time) error {
	query := `UPDATE feeds SET "lastFetch" = $1 WHERE id = $2;`
	tag, err := s.DB.Exec(ctx, query, nullTime(lastFetch), feedID)
	if err != nil {
		s.log.Error("Failed to touch feed", slog.Any("error", err), slog.Int64("feedID", feedID))
		return fmt.Errorf("failed to touch feed %d: %w", feedID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("feed %d: %w", feedID, domain.ErrNotFound)
	}
	return nil
}

func timeOf(ts pgtype.Timestamp) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time.UTC()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decodeData(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return data, nil
}
