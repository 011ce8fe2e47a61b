package usecase

import (
	"context"
	"io"
	"net/http"
	"placefeeds/internal/domain"
	"placefeeds/internal/fetcher"
	"time"
)

// FeedFetcher - интерфейс для условной загрузки ленты.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*fetcher.Response, error)
}

// FeedParser - интерфейс для парсинга данных в доменную модель.
type FeedParser interface {
	Parse(ctx context.Context, reader io.Reader) (*domain.Feed, error)
}

// ItemStorage - доступ к записям лент. Поиск по GUID глобальный.
type ItemStorage interface {
	ItemByGUID(ctx context.Context, guid string) (domain.StoredItem, error)
	InsertItem(ctx context.Context, item domain.StoredItem) (int64, error)
	UpdateItem(ctx context.Context, item domain.StoredItem) error
}

// FeedStorage - все, что конвейеру нужно от хранилища.
type FeedStorage interface {
	ItemStorage
	FeedsForUpdate(ctx context.Context, sel domain.Selector) ([]domain.StoredFeed, error)
	UpdateItemImage(ctx context.Context, guid string, img domain.Image) error
	UpdateFeedFetchState(ctx context.Context, feedID int64, etag string, lastBuildDate, lastFetch time.Time) error
	TouchFeed(ctx context.Context, feedID int64, lastFetch time.Time) error
}

// ImageExtractor - интерфейс для извлечения изображений записей.
type ImageExtractor interface {
	Extract(ctx context.Context, items []domain.FeedItem) (map[string]domain.Image, map[string]string)
}

// Notifier - интерфейс для оповещения о новых и обновленных записях.
type Notifier interface {
	Notify(ctx context.Context, event domain.ItemsUpdated) error
}
