package images

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"placefeeds/internal/domain"
	"placefeeds/internal/fetcher"
	"placefeeds/internal/metrics"
	"regexp"
	"strconv"
)

var ogImageRegex = regexp.MustCompile(`<meta\s+property=["'](og:image[^"']*)["']\s+content=["']([^"']+)`)

// PageFetcher загружает страницу записи.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*fetcher.Response, error)
}

// Extractor последовательно, по одной записи, загружает страницы и
// извлекает из них Open Graph метаданные изображения.
type Extractor struct {
	fetcher PageFetcher
	log     *slog.Logger
}

func NewExtractor(f PageFetcher, log *slog.Logger) *Extractor {
	return &Extractor{
		fetcher: f,
		log:     log.With(slog.String("component", "image-extractor")),
	}
}

// Extract возвращает найденные изображения и ошибки загрузки, обе карты по GUID.
// Записи без пригодных метаданных в результат не попадают.
func (e *Extractor) Extract(ctx context.Context, items []domain.FeedItem) (map[string]domain.Image, map[string]string) {
	found := make(map[string]domain.Image)
	errs := make(map[string]string)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		log := e.log.With(
			slog.String("guid", item.GUID),
			slog.String("link", item.Link),
		)

		resp, err := e.fetcher.Fetch(ctx, item.Link, nil)
		if err != nil {
			log.Warn("Failed to fetch item page", slog.Any("error", err))
			errs[item.GUID] = err.Error()
			metrics.ImagesExtracted.WithLabelValues("error").Inc()
			continue
		}

		img := ExtractImage(string(resp.Body))
		if img.IsEmpty() {
			log.Debug("No image metadata found")
			metrics.ImagesExtracted.WithLabelValues("none").Inc()
			continue
		}
		found[item.GUID] = img
		metrics.ImagesExtracted.WithLabelValues("found").Inc()
	}

	return found, errs
}

// ExtractImage собирает все og:image свойства страницы в одну структуру.
// Более поздние свойства перезаписывают ранние.
func ExtractImage(body string) domain.Image {
	var img domain.Image
	for _, m := range ogImageRegex.FindAllStringSubmatch(body, -1) {
		property, content := m[1], m[2]
		switch property {
		case "og:image":
			if validURL(content) {
				img.URL = content
			}
		case "og:image:secure_url":
			if validURL(content) {
				img.SecureURL = content
			}
		case "og:image:width":
			if n, err := strconv.Atoi(content); err == nil {
				img.Width = n
			}
		case "og:image:height":
			if n, err := strconv.Atoi(content); err == nil {
				img.Height = n
			}
		case "og:image:alt":
			img.Alt = content
		case "og:image:type":
			img.Type = content
		}
	}
	return img
}

func validURL(s string) bool {
	_, err := url.Parse(s)
	return err == nil
}
