package usecase

import (
	"errors"
	"placefeeds/internal/domain"
	"time"
)

// ErrInvalidFeed - документ разобран, но лента непригодна для обновления.
var ErrInvalidFeed = errors.New("invalid feed")

// FeedState - состояние ленты в конвейере обновления.
type FeedState int

const (
	StateQueued FeedState = iota
	StateFetching
	StateNotModified
	StateFetchFailed
	StateParseFailed
	StateParsed
	StateDiffing
	StateExtractingImages
	StateDone
)

var stateNames = [...]string{
	StateQueued:           "queued",
	StateFetching:         "fetching",
	StateNotModified:      "not_modified",
	StateFetchFailed:      "fetch_failed",
	StateParseFailed:      "parse_failed",
	StateParsed:           "parsed",
	StateDiffing:          "diffing",
	StateExtractingImages: "extracting_images",
	StateDone:             "done",
}

func (s FeedState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Outcome - чем закончилась обработка ленты.
type Outcome string

const (
	OutcomeNotModified Outcome = "not_modified"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeParseFailed Outcome = "parse_failed"
	OutcomeUpdated     Outcome = "updated"
)

// FeedResult - итог обработки одной ленты.
type FeedResult struct {
	FeedID      int64
	Title       string
	Source      string
	Outcome     Outcome
	New         int
	Updated     int
	Unchanged   int
	Failed      int
	Images      map[string]domain.Image
	ImageErrors map[string]string
	Err         error
	Duration    time.Duration
}

// RunResult - итог одного запуска обновления.
type RunResult struct {
	Feeds    []FeedResult
	Started  time.Time
	Finished time.Time
}

func (r RunResult) Count(o Outcome) int {
	n := 0
	for _, f := range r.Feeds {
		if f.Outcome == o {
			n++
		}
	}
	return n
}
