package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"placefeeds/internal/domain"
	"placefeeds/internal/metrics"
	"sync"
	"time"
)

// Processor обрабатывает одну ленту.
type Processor interface {
	Process(ctx context.Context, sf domain.StoredFeed) FeedResult
}

// FeedSource выбирает ленты для обновления.
type FeedSource interface {
	FeedsForUpdate(ctx context.Context, sel domain.Selector) ([]domain.StoredFeed, error)
}

// Updater обходит очередь лент строго по одной.
type Updater struct {
	processor Processor
	source    FeedSource
	log       *slog.Logger
	now       func() time.Time

	// OnFeedDone вызывается после завершения каждой ленты.
	OnFeedDone func(FeedResult)

	mu      sync.Mutex
	running bool
	last    *RunResult
}

func NewUpdater(processor Processor, source FeedSource, log *slog.Logger) *Updater {
	return &Updater{
		processor: processor,
		source:    source,
		log:       log.With(slog.String("component", "updater")),
		now:       time.Now,
	}
}

// RunSelected загружает очередь по селектору и запускает обновление.
func (u *Updater) RunSelected(ctx context.Context, sel domain.Selector) (RunResult, error) {
	if err := sel.Validate(); err != nil {
		return RunResult{}, err
	}
	u.log.Debug("Query feeds to update from database")
	feeds, err := u.source.FeedsForUpdate(ctx, sel)
	if err != nil {
		u.log.Error("Failed to query feeds to update", slog.Any("error", err))
		return RunResult{}, fmt.Errorf("failed to query feeds to update: %w", err)
	}
	if len(feeds) == 0 {
		u.log.Info("No feeds found for update")
	}
	return u.Run(ctx, feeds), nil
}

// Run обрабатывает очередь до конца. Отмена контекста прекращает выборку
// следующих лент, текущая лента при этом доводится до StateDone.
func (u *Updater) Run(ctx context.Context, queue []domain.StoredFeed) RunResult {
	u.setRunning(true)
	defer u.setRunning(false)

	result := RunResult{
		Feeds:   make([]FeedResult, 0, len(queue)),
		Started: u.now(),
	}
	u.log.Info("Feeds found for update", slog.Int("feeds", len(queue)))

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			u.log.Warn("Update run interrupted",
				slog.Int("remaining", len(queue)),
				slog.Any("error", err),
			)
			break
		}
		current := queue[0]
		queue = queue[1:]

		res := u.processor.Process(ctx, current)
		result.Feeds = append(result.Feeds, res)
		if u.OnFeedDone != nil {
			u.OnFeedDone(res)
		}
	}

	result.Finished = u.now()
	metrics.LastRunTimestamp.Set(float64(result.Finished.Unix()))
	u.log.Info("Update run finished",
		slog.Int("feeds", len(result.Feeds)),
		slog.Int("updated", result.Count(OutcomeUpdated)),
		slog.Int("not_modified", result.Count(OutcomeNotModified)),
		slog.Int("fetch_failed", result.Count(OutcomeFetchFailed)),
		slog.Int("parse_failed", result.Count(OutcomeParseFailed)),
		slog.Duration("duration", result.Finished.Sub(result.Started)),
	)

	u.mu.Lock()
	u.last = &result
	u.mu.Unlock()
	return result
}

// LastRun возвращает итог последнего завершенного запуска.
func (u *Updater) LastRun() (RunResult, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.last == nil {
		return RunResult{}, false
	}
	return *u.last, true
}

func (u *Updater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

func (u *Updater) setRunning(v bool) {
	u.mu.Lock()
	u.running = v
	u.mu.Unlock()
}
