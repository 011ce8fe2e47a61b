package domain

import "errors"

var ErrNoSelection = errors.New("no feed selected for update")

// Selector описывает, какие ленты попадут в очередь обновления.
// Приоритет: All, FeedID, PlaceID, PlaceSlug.
type Selector struct {
	All       bool
	FeedID    int64
	PlaceID   int64
	PlaceSlug string
}

func (s Selector) Validate() error {
	if !s.All && s.FeedID <= 0 && s.PlaceID <= 0 && s.PlaceSlug == "" {
		return ErrNoSelection
	}
	return nil
}
