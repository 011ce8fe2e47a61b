package domain

import "time"

// StoredFeed - лента, сохраненная в БД.
type StoredFeed struct {
	ID            int64
	PlaceID       int64
	Title         string
	Slug          string
	Description   string
	Source        string
	Link          string
	ETag          string
	LastBuildDate time.Time
	LastFetch     time.Time
	Enabled       bool
	Data          map[string]any
}

// StoredItem - запись ленты, сохраненная в БД. GUID уникален во всем хранилище.
type StoredItem struct {
	ID          int64
	FeedID      int64
	GUID        string
	Title       string
	Description string
	Author      string
	Link        string
	PubDate     time.Time
	Data        map[string]any
}

// ImageKey - ключ, под которым метаданные изображения лежат в Data.
const ImageKey = "image"
