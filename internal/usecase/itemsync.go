package usecase

import (
	"context"
	"errors"
	"log/slog"
	"placefeeds/internal/domain"
	"placefeeds/internal/metrics"
	"time"
)

// SyncResult - классификация записей ленты после сравнения с хранилищем.
type SyncResult struct {
	New       []domain.FeedItem
	Updated   []domain.FeedItem
	Unchanged []domain.FeedItem
	Failed    int
}

// Changed возвращает новые записи, а за ними обновленные.
func (r SyncResult) Changed() []domain.FeedItem {
	out := make([]domain.FeedItem, 0, len(r.New)+len(r.Updated))
	out = append(out, r.New...)
	return append(out, r.Updated...)
}

// ItemSyncer сравнивает записи разобранной ленты с сохраненными и
// записывает новые и изменившиеся.
type ItemSyncer struct {
	storage ItemStorage
	log     *slog.Logger
}

func NewItemSyncer(storage ItemStorage, log *slog.Logger) *ItemSyncer {
	return &ItemSyncer{
		storage: storage,
		log:     log.With(slog.String("component", "item-sync")),
	}
}

// Sync обрабатывает записи по порядку. Ошибка для одной записи
// логируется, запись пропускается, остальные обрабатываются дальше.
func (s *ItemSyncer) Sync(ctx context.Context, feedID int64, feed *domain.Feed) SyncResult {
	var res SyncResult
	log := s.log.With(slog.Int64("feed_id", feedID))

	for _, item := range feed.Items {
		ilog := log.With(slog.String("guid", item.GUID))
		if item.GUID == "" {
			ilog.Warn("Skipping item without guid", slog.String("title", item.Title))
			res.Failed++
			continue
		}

		stored, err := s.storage.ItemByGUID(ctx, item.GUID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			ilog.Debug("Can not find item in the database, inserting it")
			if _, err := s.storage.InsertItem(ctx, toStoredItem(feedID, item)); err != nil {
				ilog.Warn("Failed to insert item", slog.Any("error", err))
				res.Failed++
				continue
			}
			res.New = append(res.New, item)

		case err != nil:
			ilog.Warn("Failed to select item", slog.Any("error", err))
			res.Failed++

		case isNewer(item.PubDate, stored.PubDate):
			ilog.Debug("Found newer version of item, updating it")
			upd := toStoredItem(stored.FeedID, item)
			upd.ID = stored.ID
			if err := s.storage.UpdateItem(ctx, upd); err != nil {
				ilog.Warn("Failed to update item", slog.Any("error", err))
				res.Failed++
				continue
			}
			res.Updated = append(res.Updated, item)

		default:
			res.Unchanged = append(res.Unchanged, item)
		}
	}

	metrics.ItemsSynced.WithLabelValues("new").Add(float64(len(res.New)))
	metrics.ItemsSynced.WithLabelValues("updated").Add(float64(len(res.Updated)))
	metrics.ItemsSynced.WithLabelValues("unchanged").Add(float64(len(res.Unchanged)))
	metrics.ItemsSynced.WithLabelValues("failed").Add(float64(res.Failed))

	return res
}

// isNewer сравнивает даты публикации. Нулевая дата считается самой старой:
// нулевая входящая дата никогда не приводит к обновлению.
func isNewer(incoming, stored time.Time) bool {
	if incoming.IsZero() {
		return false
	}
	if stored.IsZero() {
		return true
	}
	return incoming.After(stored)
}

func toStoredItem(feedID int64, item domain.FeedItem) domain.StoredItem {
	return domain.StoredItem{
		FeedID:      feedID,
		GUID:        item.GUID,
		Title:       item.Title,
		Description: cleanDescription(item.Description),
		Author:      item.Author,
		Link:        item.Link,
		PubDate:     item.PubDate,
	}
}
