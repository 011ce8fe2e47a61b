package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"placefeeds/internal/domain"
	"placefeeds/internal/fetcher"
	"placefeeds/internal/images"
	"placefeeds/internal/infrastructure/config"
	"placefeeds/internal/notify"
	"placefeeds/internal/parser"
	transport "placefeeds/internal/transport/http"
	"placefeeds/internal/usecase"
	"placefeeds/storage"
	"time"
)

const shutdownTimeout = 5 * time.Second

// App связывает хранилище, конвейер обновления и HTTP сервер.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	store    storage.FeedStore
	notifier interface{ Close() error }
	updater  *usecase.Updater
	catalog  *usecase.Catalog
}

// New подключается к БД и собирает конвейер обновления лент.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	// Подключение к БД лент
	store, err := storage.NewStorage(ctx, cfg.DB, log)
	if err != nil {
		log.Error("Error DB connection", slog.Any("error", err))
		return nil, err
	}

	a := &App{cfg: cfg, log: log, store: store}

	httpFetcher := fetcher.New(log, fetcher.Options{
		Timeout:      cfg.GetFetchTimeout(),
		MaxBodyBytes: cfg.App.MaxBodyBytes,
		UserAgent:    cfg.App.UserAgent,
	})

	var opts []usecase.ProcessorOption
	if cfg.KafkaEnabled() {
		n, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topics.ItemsUpdated, log)
		if err != nil {
			store.Close()
			log.Error("Kafka creating producer error", slog.Any("error", err))
			return nil, err
		}
		a.notifier = n
		opts = append(opts, usecase.WithNotifier(n))
	}

	feedParser := parser.New(log)
	extractor := images.NewExtractor(httpFetcher, log)
	processor := usecase.NewFeedProcessor(
		httpFetcher,
		feedParser,
		store,
		extractor,
		log,
		opts...,
	)
	a.updater = usecase.NewUpdater(processor, store, log)
	a.catalog = usecase.NewCatalog(httpFetcher, feedParser, store, extractor, log)
	return a, nil
}

// Updater возвращает планировщик очереди лент.
func (a *App) Updater() *usecase.Updater {
	return a.updater
}

// Update выполняет один запуск обновления для выбранных лент.
func (a *App) Update(ctx context.Context, sel domain.Selector) (usecase.RunResult, error) {
	return a.updater.RunSelected(ctx, sel)
}

func (a *App) AddPlace(ctx context.Context, place domain.Place) (domain.Place, error) {
	return a.catalog.AddPlace(ctx, place)
}

func (a *App) AddFeed(ctx context.Context, req usecase.AddFeedRequest) (usecase.AddFeedResult, error) {
	return a.catalog.AddFeed(ctx, req)
}

func (a *App) ListPlaces(ctx context.Context, search string) ([]domain.Place, error) {
	return a.store.ListPlaces(ctx, search)
}

func (a *App) ListFeeds(ctx context.Context, filter domain.ListFilter) ([]domain.StoredFeed, error) {
	return a.store.ListFeeds(ctx, filter)
}

func (a *App) ListItems(ctx context.Context, filter domain.ListFilter) ([]domain.ItemListing, error) {
	return a.store.ListItems(ctx, filter)
}

// Serve запускает HTTP сервер статуса и обновляет все ленты каждые
// processing_interval до отмены контекста.
func (a *App) Serve(ctx context.Context) error {
	api := transport.NewApi(a.updater, a.log)

	// Настройка роутера и middleware
	handler := api.Router()
	handler = transport.CORSMiddleware()(handler)
	handler = transport.LoggingMiddleware(a.log)(handler)
	handler = transport.RequestIDMiddleware(handler)

	srv := &http.Server{
		Addr:              a.cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server started", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	interval := a.cfg.GetAppProcessingInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.runAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return a.shutdown(srv)
		case err, ok := <-serverErr:
			if ok {
				a.log.Error("HTTP server failed", slog.Any("error", err))
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ticker.C:
			a.runAll(ctx)
		}
	}
}

func (a *App) runAll(ctx context.Context) {
	if _, err := a.updater.RunSelected(ctx, domain.Selector{All: true}); err != nil {
		a.log.Error("Update run failed", slog.Any("error", err))
	}
}

func (a *App) shutdown(srv *http.Server) error {
	a.log.Info("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.Warn("Failed to close kafka producer", slog.Any("error", err))
		}
	}
	a.store.Close()
}

// Migrate применяет миграции схемы БД.
func Migrate(cfg *config.Config, log *slog.Logger) error {
	return storage.Migrate(cfg.DB, log)
}

// Rollback откатывает последнюю миграцию схемы БД.
func Rollback(cfg *config.Config, log *slog.Logger) error {
	return storage.Rollback(cfg.DB, log)
}

// Reset откатывает все миграции схемы БД.
func Reset(cfg *config.Config, log *slog.Logger) error {
	return storage.Reset(cfg.DB, log)
}

// Refresh откатывает steps миграций (0 - все) и применяет их заново.
func Refresh(cfg *config.Config, steps int, log *slog.Logger) error {
	return storage.Refresh(cfg.DB, steps, log)
}
