package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"placefeeds/internal/domain"
	"placefeeds/internal/fetcher"
	"placefeeds/internal/metrics"
	"time"

	"github.com/samber/lo"
)

type FeedProcessor struct {
	fetcher  FeedFetcher
	parser   FeedParser
	storage  FeedStorage
	syncer   *ItemSyncer
	images   ImageExtractor
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

type ProcessorOption func(*FeedProcessor)

// WithNotifier включает оповещение о новых и обновленных записях.
func WithNotifier(n Notifier) ProcessorOption {
	return func(p *FeedProcessor) {
		p.notifier = n
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *FeedProcessor) {
		p.now = now
	}
}

func NewFeedProcessor(
	fetcher FeedFetcher,
	parser FeedParser,
	storage FeedStorage,
	images ImageExtractor,
	log *slog.Logger,
	opts ...ProcessorOption,
) *FeedProcessor {
	p := &FeedProcessor{
		fetcher: fetcher,
		parser:  parser,
		storage: storage,
		syncer:  NewItemSyncer(storage, log),
		images:  images,
		log:     log.With(slog.String("component", "feed-processor")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// feedRun - данные одной ленты, передаваемые между состояниями.
type feedRun struct {
	sf     domain.StoredFeed
	log    *slog.Logger
	res    FeedResult
	resp   *fetcher.Response
	feed   *domain.Feed
	synced SyncResult
}

// Process проводит одну ленту через все состояния до StateDone.
// Ни одна ошибка не прерывает обработку следующих лент: она
// логируется и возвращается в FeedResult.
func (p *FeedProcessor) Process(ctx context.Context, sf domain.StoredFeed) FeedResult {
	start := p.now()
	run := &feedRun{
		sf: sf,
		log: p.log.With(
			slog.Int64("feed_id", sf.ID),
			slog.String("feed", sf.Title),
			slog.String("url", sf.Source),
		),
		res: FeedResult{FeedID: sf.ID, Title: sf.Title, Source: sf.Source},
	}

	state := StateQueued
	for state != StateDone {
		next := p.step(ctx, run, state)
		run.log.Debug("Feed state changed",
			slog.String("from", state.String()),
			slog.String("to", next.String()),
		)
		state = next
	}

	res := run.res
	res.Duration = p.now().Sub(start)
	metrics.FeedsProcessed.WithLabelValues(string(res.Outcome)).Inc()
	run.log.Info("Finished updating feed",
		slog.String("outcome", string(res.Outcome)),
		slog.Int("new", res.New),
		slog.Int("updated", res.Updated),
		slog.Int("images", len(res.Images)),
		slog.Duration("duration", res.Duration),
	)
	return res
}

func (p *FeedProcessor) step(ctx context.Context, run *feedRun, state FeedState) FeedState {
	sf, log, res := run.sf, run.log, &run.res
	// Загруженная лента сохраняется целиком и после отмены контекста
	storeCtx := context.WithoutCancel(ctx)

	switch state {
	case StateQueued:
		return StateFetching

	case StateFetching:
		log.Info("Fetching feed")
		header := http.Header{}
		if sf.ETag != "" {
			header.Set("If-None-Match", sf.ETag)
		}
		fetchStart := time.Now()
		resp, err := p.fetcher.Fetch(ctx, sf.Source, header)
		metrics.FeedFetchDuration.Observe(time.Since(fetchStart).Seconds())
		if err != nil {
			res.Err = fmt.Errorf("fetch failed for feed %d: %w", sf.ID, err)
			return StateFetchFailed
		}
		if resp.NotModified() {
			return StateNotModified
		}
		run.resp = resp
		feed, err := p.parser.Parse(ctx, bytes.NewReader(resp.Body))
		if err != nil {
			res.Err = fmt.Errorf("parse failed for feed %d: %w", sf.ID, err)
			return StateParseFailed
		}
		if !feed.IsValid() {
			res.Err = fmt.Errorf("parse failed for feed %d: %w (type %s)", sf.ID, ErrInvalidFeed, feed.Type)
			return StateParseFailed
		}
		run.feed = feed
		return StateParsed

	case StateNotModified:
		res.Outcome = OutcomeNotModified
		log.Info("Feed has not been modified since last update")
		if err := p.storage.TouchFeed(storeCtx, sf.ID, p.now().UTC()); err != nil {
			log.Warn("Failed to update last fetch time", slog.Any("error", err))
			res.Err = fmt.Errorf("touch feed %d: %w", sf.ID, err)
		}
		return StateDone

	case StateFetchFailed:
		res.Outcome = OutcomeFetchFailed
		log.Warn("Failed to fetch feed", slog.String("stage", "fetch"), slog.Any("error", res.Err))
		return StateDone

	case StateParseFailed:
		res.Outcome = OutcomeParseFailed
		log.Warn("Failed to parse feed", slog.String("stage", "parse"), slog.Any("error", res.Err))
		return StateDone

	case StateParsed:
		log.Debug("Feed parsed successfully",
			slog.String("stage", "parse"),
			slog.Int("items_parsed", len(run.feed.Items)),
		)
		return StateDiffing

	case StateDiffing:
		res.Outcome = OutcomeUpdated
		run.synced = p.syncer.Sync(storeCtx, sf.ID, run.feed)
		res.New = len(run.synced.New)
		res.Updated = len(run.synced.Updated)
		res.Unchanged = len(run.synced.Unchanged)
		res.Failed = run.synced.Failed

		// etag перезаписывается всегда, даже пустым значением
		etag := run.resp.ETag()
		if err := p.storage.UpdateFeedFetchState(storeCtx, sf.ID, etag, run.feed.LastBuildDate, p.now().UTC()); err != nil {
			log.Error("Failed to update feed in the database", slog.String("stage", "save"), slog.Any("error", err))
			res.Err = fmt.Errorf("save failed for feed %d: %w", sf.ID, err)
		}
		log.Info("Finished updating feed in the database",
			slog.Int("new", res.New),
			slog.Int("updated", res.Updated),
			slog.Int("failed", res.Failed),
		)
		return StateExtractingImages

	case StateExtractingImages:
		changed := run.synced.Changed()
		if len(changed) == 0 {
			log.Info("No new or updated items")
			return StateDone
		}
		found, errs := p.images.Extract(ctx, changed)
		res.Images = found
		res.ImageErrors = errs
		p.storeImages(storeCtx, log, found)
		p.notify(ctx, log, sf, run.synced, len(found))
		return StateDone
	}

	res.Err = fmt.Errorf("unexpected feed state %s", state)
	return StateDone
}

// storeImages записывает data.image только для записей, у которых изображение найдено.
func (p *FeedProcessor) storeImages(ctx context.Context, log *slog.Logger, found map[string]domain.Image) {
	if len(found) == 0 {
		log.Info("Finished fetching images: nothing to do")
		return
	}
	for guid, img := range found {
		if err := p.storage.UpdateItemImage(ctx, guid, img); err != nil {
			log.Warn("Failed to update image data of item",
				slog.String("guid", guid),
				slog.Any("error", err),
			)
		}
	}
	log.Info("Finished fetching images", slog.Int("images", len(found)))
}

func (p *FeedProcessor) notify(ctx context.Context, log *slog.Logger, sf domain.StoredFeed, synced SyncResult, images int) {
	if p.notifier == nil {
		return
	}
	guid := func(item domain.FeedItem, _ int) string { return item.GUID }
	event := domain.ItemsUpdated{
		FeedID:    sf.ID,
		FeedTitle: sf.Title,
		New:       lo.Map(synced.New, guid),
		Updated:   lo.Map(synced.Updated, guid),
		Images:    images,
		At:        p.now().UTC(),
	}
	if err := p.notifier.Notify(ctx, event); err != nil {
		log.Warn("Failed to publish items update", slog.Any("error", err))
		metrics.NotificationsPublished.WithLabelValues("error").Inc()
		return
	}
	metrics.NotificationsPublished.WithLabelValues("ok").Inc()
}
