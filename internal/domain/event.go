package domain

import "time"

// ItemsUpdated публикуется после обработки ленты, в которой появились
// новые или обновленные записи.
type ItemsUpdated struct {
	FeedID    int64     `json:"feed_id"`
	FeedTitle string    `json:"feed_title"`
	New       []string  `json:"new"`
	Updated   []string  `json:"updated"`
	Images    int       `json:"images"`
	At        time.Time `json:"at"`
}
