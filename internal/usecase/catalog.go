package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"placefeeds/internal/domain"
	"strings"
	"time"
)

var (
	ErrFeedExists  = errors.New("feed has already been added")
	ErrPlaceExists = errors.New("place slug is already in use")
	ErrInvalidURL  = errors.New("url must be an absolute http or https url")
	ErrEmptySlug   = errors.New("slug is empty")
)

// CatalogStorage - доступ к местам и лентам для команд добавления.
type CatalogStorage interface {
	ItemStorage
	UpdateItemImage(ctx context.Context, guid string, img domain.Image) error
	PlaceByID(ctx context.Context, id int64) (domain.Place, error)
	PlaceBySlug(ctx context.Context, slug string) (domain.Place, error)
	InsertPlace(ctx context.Context, place domain.Place) (int64, error)
	FeedBySource(ctx context.Context, source string) (domain.StoredFeed, error)
	InsertFeed(ctx context.Context, feed domain.StoredFeed) (int64, error)
}

// AddFeedRequest - параметры feeds add. Пустые Title, Slug и Description
// берутся из самой ленты.
type AddFeedRequest struct {
	PlaceID     int64
	URL         string
	Title       string
	Slug        string
	Description string
}

type AddFeedResult struct {
	Feed        domain.StoredFeed
	Items       int
	Failed      int
	Images      int
	ImageErrors map[string]string
}

// Catalog добавляет места и ленты.
type Catalog struct {
	fetcher FeedFetcher
	parser  FeedParser
	storage CatalogStorage
	syncer  *ItemSyncer
	images  ImageExtractor
	log     *slog.Logger
	now     func() time.Time
}

func NewCatalog(fetcher FeedFetcher, parser FeedParser, storage CatalogStorage, images ImageExtractor, log *slog.Logger) *Catalog {
	return &Catalog{
		fetcher: fetcher,
		parser:  parser,
		storage: storage,
		syncer:  NewItemSyncer(storage, log),
		images:  images,
		log:     log.With(slog.String("component", "catalog")),
		now:     time.Now,
	}
}

// AddPlace проверяет, что slug свободен, и сохраняет место.
func (c *Catalog) AddPlace(ctx context.Context, place domain.Place) (domain.Place, error) {
	place.Name = strings.TrimSpace(place.Name)
	if place.Name == "" {
		return domain.Place{}, errors.New("place name is required")
	}
	if place.Slug == "" {
		place.Slug = place.Name
	}
	place.Slug = domain.Slugify(place.Slug)
	if place.Slug == "" {
		return domain.Place{}, ErrEmptySlug
	}
	if place.Link != "" {
		if err := validateURL(place.Link); err != nil {
			return domain.Place{}, fmt.Errorf("link: %w", err)
		}
	}
	if place.ParentID > 0 {
		if _, err := c.storage.PlaceByID(ctx, place.ParentID); err != nil {
			return domain.Place{}, fmt.Errorf("parent place %d: %w", place.ParentID, err)
		}
	}

	existing, err := c.storage.PlaceBySlug(ctx, place.Slug)
	switch {
	case err == nil:
		return domain.Place{}, fmt.Errorf("%w: %q is used by place %d (%s)", ErrPlaceExists, place.Slug, existing.ID, existing.Name)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Place{}, err
	}

	id, err := c.storage.InsertPlace(ctx, place)
	if err != nil {
		return domain.Place{}, err
	}
	place.ID = id
	c.log.Info("Place added", slog.Int64("place_id", id), slog.String("slug", place.Slug))
	return place, nil
}

// AddFeed загружает ленту, сохраняет ее вместе с записями и извлекает
// изображения записей. Ошибки изображений не прерывают добавление.
func (c *Catalog) AddFeed(ctx context.Context, req AddFeedRequest) (AddFeedResult, error) {
	if err := validateURL(req.URL); err != nil {
		return AddFeedResult{}, err
	}
	if _, err := c.storage.PlaceByID(ctx, req.PlaceID); err != nil {
		return AddFeedResult{}, fmt.Errorf("place %d: %w", req.PlaceID, err)
	}

	log := c.log.With(slog.String("url", req.URL))
	log.Info("Fetching feed")
	resp, err := c.fetcher.Fetch(ctx, req.URL, nil)
	if err != nil {
		return AddFeedResult{}, fmt.Errorf("fetch failed: %w", err)
	}
	feed, err := c.parser.Parse(ctx, bytes.NewReader(resp.Body))
	if err != nil {
		return AddFeedResult{}, fmt.Errorf("parse failed: %w", err)
	}
	if !feed.IsValid() {
		return AddFeedResult{}, fmt.Errorf("parse failed: %w (type %s)", ErrInvalidFeed, feed.Type)
	}

	_, err = c.storage.FeedBySource(ctx, feed.Source)
	switch {
	case err == nil:
		return AddFeedResult{}, fmt.Errorf("%w: %s", ErrFeedExists, feed.Source)
	case !errors.Is(err, domain.ErrNotFound):
		return AddFeedResult{}, err
	}

	sf := domain.StoredFeed{
		PlaceID:       req.PlaceID,
		Title:         firstNonEmpty(req.Title, feed.Title),
		Description:   firstNonEmpty(req.Description, cleanDescription(feed.Description)),
		Source:        feed.Source,
		Link:          feed.Link,
		ETag:          resp.ETag(),
		LastBuildDate: feed.LastBuildDate,
		LastFetch:     c.now().UTC(),
		Enabled:       true,
	}
	sf.Slug = domain.Slugify(firstNonEmpty(req.Slug, sf.Title))
	if sf.Title == "" {
		return AddFeedResult{}, errors.New("feed has no title, use --title")
	}
	if sf.Slug == "" {
		return AddFeedResult{}, ErrEmptySlug
	}

	// Лента уже загружена, поэтому сохраняется целиком и после отмены
	storeCtx := context.WithoutCancel(ctx)
	if sf.ID, err = c.storage.InsertFeed(storeCtx, sf); err != nil {
		return AddFeedResult{}, err
	}
	log = log.With(slog.Int64("feed_id", sf.ID))
	log.Info("Feed added", slog.String("slug", sf.Slug))

	synced := c.syncer.Sync(storeCtx, sf.ID, feed)
	res := AddFeedResult{Feed: sf, Items: len(synced.New) + len(synced.Updated), Failed: synced.Failed}

	changed := synced.Changed()
	if len(changed) == 0 {
		return res, nil
	}
	found, errs := c.images.Extract(ctx, changed)
	res.ImageErrors = errs
	for guid, img := range found {
		if err := c.storage.UpdateItemImage(storeCtx, guid, img); err != nil {
			log.Warn("Failed to update image data of item", slog.String("guid", guid), slog.Any("error", err))
			continue
		}
		res.Images++
	}
	return res, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
