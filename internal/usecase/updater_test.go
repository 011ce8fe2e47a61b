package usecase

import (
	"context"
	"errors"
	"placefeeds/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProcessor struct {
	outcomes map[int64]Outcome
	seen     []int64
	onCall   func(id int64)
}

func (p *scriptedProcessor) Process(_ context.Context, sf domain.StoredFeed) FeedResult {
	p.seen = append(p.seen, sf.ID)
	if p.onCall != nil {
		p.onCall(sf.ID)
	}
	return FeedResult{FeedID: sf.ID, Outcome: p.outcomes[sf.ID]}
}

func TestRunProcessesQueueInOrder(t *testing.T) {
	proc := &scriptedProcessor{outcomes: map[int64]Outcome{
		1: OutcomeUpdated,
		2: OutcomeFetchFailed,
		3: OutcomeNotModified,
		4: OutcomeParseFailed,
	}}
	u := NewUpdater(proc, newMemStore(), discardLogger())

	var done []int64
	u.OnFeedDone = func(r FeedResult) { done = append(done, r.FeedID) }

	_, ok := u.LastRun()
	assert.False(t, ok)

	res := u.Run(context.Background(), []domain.StoredFeed{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}})

	assert.Equal(t, []int64{1, 2, 3, 4}, proc.seen)
	assert.Equal(t, []int64{1, 2, 3, 4}, done)
	assert.Len(t, res.Feeds, 4)
	assert.Equal(t, 1, res.Count(OutcomeUpdated))
	assert.Equal(t, 1, res.Count(OutcomeFetchFailed))
	assert.Equal(t, 1, res.Count(OutcomeNotModified))
	assert.Equal(t, 1, res.Count(OutcomeParseFailed))
	assert.False(t, u.Running())

	last, ok := u.LastRun()
	require.True(t, ok)
	assert.Len(t, last.Feeds, 4)
}

func TestRunEmptyQueue(t *testing.T) {
	proc := &scriptedProcessor{}
	res := NewUpdater(proc, newMemStore(), discardLogger()).Run(context.Background(), nil)
	assert.Empty(t, res.Feeds)
	assert.Empty(t, proc.seen)
}

func TestRunStopsDequeuingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := &scriptedProcessor{}
	proc.onCall = func(id int64) {
		if id == 2 {
			cancel()
		}
	}
	res := NewUpdater(proc, newMemStore(), discardLogger()).Run(ctx, []domain.StoredFeed{{ID: 1}, {ID: 2}, {ID: 3}})

	assert.Equal(t, []int64{1, 2}, proc.seen)
	assert.Len(t, res.Feeds, 2)
}

func TestRunSelected(t *testing.T) {
	store := newMemStore(
		domain.StoredFeed{ID: 1, Enabled: true},
		domain.StoredFeed{ID: 2, Enabled: false},
		domain.StoredFeed{ID: 3, Enabled: true},
	)
	proc := &scriptedProcessor{}
	u := NewUpdater(proc, store, discardLogger())

	_, err := u.RunSelected(context.Background(), domain.Selector{})
	assert.ErrorIs(t, err, domain.ErrNoSelection)

	res, err := u.RunSelected(context.Background(), domain.Selector{All: true})
	require.NoError(t, err)
	assert.Len(t, res.Feeds, 2)
	assert.Equal(t, []int64{1, 3}, proc.seen)

	proc.seen = nil
	_, err = u.RunSelected(context.Background(), domain.Selector{FeedID: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, proc.seen)

	store.failFeeds = errors.New("db down")
	_, err = u.RunSelected(context.Background(), domain.Selector{All: true})
	assert.Error(t, err)
}
