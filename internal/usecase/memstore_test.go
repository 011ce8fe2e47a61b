package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"placefeeds/internal/domain"
	"time"
)

var errStore = errors.New("store failure")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore - хранилище в памяти для тестов конвейера.
type memStore struct {
	feeds  map[int64]*domain.StoredFeed
	items  map[string]*domain.StoredItem
	places map[int64]*domain.Place
	nextID int64

	inserts     int
	updates     int
	imageWrites int
	touches     int
	feedWrites  int

	failLookup map[string]bool
	failInsert map[string]bool
	failUpdate map[string]bool
	failFeeds  error
	// checkCtx заставляет методы возвращать ошибку отмененного контекста
	checkCtx bool
}

func newMemStore(feeds ...domain.StoredFeed) *memStore {
	s := &memStore{
		feeds:      map[int64]*domain.StoredFeed{},
		items:      map[string]*domain.StoredItem{},
		places:     map[int64]*domain.Place{},
		failLookup: map[string]bool{},
		failInsert: map[string]bool{},
		failUpdate: map[string]bool{},
	}
	for i := range feeds {
		f := feeds[i]
		s.feeds[f.ID] = &f
	}
	return s
}

func (s *memStore) put(item domain.StoredItem) {
	s.nextID++
	item.ID = s.nextID
	s.items[item.GUID] = &item
}

func (s *memStore) ctxErr(ctx context.Context) error {
	if s.checkCtx {
		return ctx.Err()
	}
	return nil
}

func (s *memStore) writes() int {
	return s.inserts + s.updates + s.imageWrites
}

func (s *memStore) FeedsForUpdate(_ context.Context, sel domain.Selector) ([]domain.StoredFeed, error) {
	if s.failFeeds != nil {
		return nil, s.failFeeds
	}
	var out []domain.StoredFeed
	for id := int64(1); id <= int64(len(s.feeds)); id++ {
		f, ok := s.feeds[id]
		if !ok || !f.Enabled {
			continue
		}
		if sel.All || sel.FeedID == f.ID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *memStore) ItemByGUID(ctx context.Context, guid string) (domain.StoredItem, error) {
	if err := s.ctxErr(ctx); err != nil {
		return domain.StoredItem{}, err
	}
	if s.failLookup[guid] {
		return domain.StoredItem{}, errStore
	}
	item, ok := s.items[guid]
	if !ok {
		return domain.StoredItem{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *memStore) InsertItem(ctx context.Context, item domain.StoredItem) (int64, error) {
	if err := s.ctxErr(ctx); err != nil {
		return 0, err
	}
	if s.failInsert[item.GUID] {
		return 0, errStore
	}
	s.inserts++
	s.put(item)
	return s.nextID, nil
}

func (s *memStore) UpdateItem(ctx context.Context, item domain.StoredItem) error {
	if err := s.ctxErr(ctx); err != nil {
		return err
	}
	if s.failUpdate[item.GUID] {
		return errStore
	}
	stored, ok := s.items[item.GUID]
	if !ok {
		return domain.ErrNotFound
	}
	s.updates++
	stored.Title = item.Title
	stored.Description = item.Description
	stored.Author = item.Author
	stored.Link = item.Link
	stored.PubDate = item.PubDate
	return nil
}

func (s *memStore) UpdateItemImage(ctx context.Context, guid string, img domain.Image) error {
	if err := s.ctxErr(ctx); err != nil {
		return err
	}
	stored, ok := s.items[guid]
	if !ok {
		return domain.ErrNotFound
	}
	s.imageWrites++
	if stored.Data == nil {
		stored.Data = map[string]any{}
	}
	stored.Data[domain.ImageKey] = img
	return nil
}

func (s *memStore) UpdateFeedFetchState(ctx context.Context, feedID int64, etag string, lastBuildDate, lastFetch time.Time) error {
	if err := s.ctxErr(ctx); err != nil {
		return err
	}
	f, ok := s.feeds[feedID]
	if !ok {
		return domain.ErrNotFound
	}
	s.feedWrites++
	f.ETag = etag
	f.LastBuildDate = lastBuildDate
	f.LastFetch = lastFetch
	return nil
}

func (s *memStore) TouchFeed(ctx context.Context, feedID int64, lastFetch time.Time) error {
	if err := s.ctxErr(ctx); err != nil {
		return err
	}
	f, ok := s.feeds[feedID]
	if !ok {
		return domain.ErrNotFound
	}
	s.touches++
	f.LastFetch = lastFetch
	return nil
}

func (s *memStore) PlaceByID(ctx context.Context, id int64) (domain.Place, error) {
	if err := s.ctxErr(ctx); err != nil {
		return domain.Place{}, err
	}
	p, ok := s.places[id]
	if !ok {
		return domain.Place{}, domain.ErrNotFound
	}
	return *p, nil
}

func (s *memStore) PlaceBySlug(ctx context.Context, slug string) (domain.Place, error) {
	if err := s.ctxErr(ctx); err != nil {
		return domain.Place{}, err
	}
	for _, p := range s.places {
		if p.Slug == slug {
			return *p, nil
		}
	}
	return domain.Place{}, domain.ErrNotFound
}

func (s *memStore) InsertPlace(ctx context.Context, place domain.Place) (int64, error) {
	if err := s.ctxErr(ctx); err != nil {
		return 0, err
	}
	place.ID = int64(len(s.places) + 1)
	s.places[place.ID] = &place
	return place.ID, nil
}

func (s *memStore) FeedBySource(ctx context.Context, source string) (domain.StoredFeed, error) {
	if err := s.ctxErr(ctx); err != nil {
		return domain.StoredFeed{}, err
	}
	for _, f := range s.feeds {
		if f.Source == source {
			return *f, nil
		}
	}
	return domain.StoredFeed{}, domain.ErrNotFound
}

func (s *memStore) InsertFeed(ctx context.Context, feed domain.StoredFeed) (int64, error) {
	if err := s.ctxErr(ctx); err != nil {
		return 0, err
	}
	feed.ID = int64(len(s.feeds) + 1)
	s.feeds[feed.ID] = &feed
	return feed.ID, nil
}
