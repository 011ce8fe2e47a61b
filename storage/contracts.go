package storage

import (
	"context"
	"placefeeds/internal/domain"
	"time"
)

// FeedStore - хранилище лент и записей.
type FeedStore interface {
	FeedsForUpdate(ctx context.Context, sel domain.Selector) ([]domain.StoredFeed, error)
	ItemByGUID(ctx context.Context, guid string) (domain.StoredItem, error)
	InsertItem(ctx context.Context, item domain.StoredItem) (int64, error)
	UpdateItem(ctx context.Context, item domain.StoredItem) error
	UpdateItemImage(ctx context.Context, guid string, img domain.Image) error
	UpdateFeedFetchState(ctx context.Context, feedID int64, etag string, lastBuildDate, lastFetch time.Time) error
	TouchFeed(ctx context.Context, feedID int64, lastFetch time.Time) error

	PlaceByID(ctx context.Context, id int64) (domain.Place, error)
	PlaceBySlug(ctx context.Context, slug string) (domain.Place, error)
	InsertPlace(ctx context.Context, place domain.Place) (int64, error)
	ListPlaces(ctx context.Context, search string) ([]domain.Place, error)
	FeedBySource(ctx context.Context, source string) (domain.StoredFeed, error)
	InsertFeed(ctx context.Context, feed domain.StoredFeed) (int64, error)
	ListFeeds(ctx context.Context, filter domain.ListFilter) ([]domain.StoredFeed, error)
	ListItems(ctx context.Context, filter domain.ListFilter) ([]domain.ItemListing, error)
	Close()
}

var _ FeedStore = (*Storage)(nil)
