package usecase

import (
	"context"
	"placefeeds/internal/domain"
	"placefeeds/internal/fetcher"
	"placefeeds/internal/images"
	"placefeeds/internal/parser"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(store *memStore) *Catalog {
	log := discardLogger()
	f := fetcher.New(log, fetcher.Options{Timeout: 5 * time.Second})
	c := NewCatalog(f, parser.New(log), store, images.NewExtractor(f, log), log)
	c.now = func() time.Time { return fixedNow }
	return c
}

func storeWithPlace() *memStore {
	store := newMemStore()
	store.places[1] = &domain.Place{ID: 1, Name: "Gießen", Slug: "giessen"}
	return store
}

func TestAddFeed(t *testing.T) {
	srv := newFeedServer(t)
	store := storeWithPlace()

	res, err := newTestCatalog(store).AddFeed(context.Background(), AddFeedRequest{PlaceID: 1, URL: srv.URL + "/feed.xml"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Feed.ID)
	assert.Equal(t, int64(1), res.Feed.PlaceID)
	assert.Equal(t, "Town news", res.Feed.Title)
	assert.Equal(t, "town-news", res.Feed.Slug)
	assert.Equal(t, srv.URL+"/feed.xml", res.Feed.Source)
	assert.Equal(t, `"v2"`, res.Feed.ETag)
	assert.True(t, res.Feed.LastFetch.Equal(fixedNow))
	assert.True(t, res.Feed.LastBuildDate.Equal(time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 1, res.Images)
	assert.Len(t, res.ImageErrors, 0)

	require.Contains(t, store.feeds, int64(1))
	assert.True(t, store.feeds[1].Enabled)
	assert.Equal(t, 2, store.inserts)
	img, ok := store.items[srv.URL+"/a"].Data[domain.ImageKey].(domain.Image)
	require.True(t, ok)
	assert.Equal(t, "https://x/img.png", img.URL)
	assert.Equal(t, 600, img.Width)
}

func TestAddFeedOverrides(t *testing.T) {
	srv := newFeedServer(t)

	tests := []struct {
		name  string
		req   AddFeedRequest
		title string
		slug  string
		desc  string
	}{
		{name: "title", req: AddFeedRequest{Title: "Rathaus Gießen"}, title: "Rathaus Gießen", slug: "rathaus-giessen"},
		{name: "slug", req: AddFeedRequest{Slug: "Presse_Mitteilungen"}, title: "Town news", slug: "presse-mitteilungen"},
		{name: "description", req: AddFeedRequest{Description: "  Amtliche   Meldungen "}, title: "Town news", slug: "town-news", desc: "Amtliche   Meldungen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithPlace()
			req := tt.req
			req.PlaceID = 1
			req.URL = srv.URL + "/feed.xml"

			res, err := newTestCatalog(store).AddFeed(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.title, res.Feed.Title)
			assert.Equal(t, tt.slug, res.Feed.Slug)
			assert.Equal(t, tt.desc, res.Feed.Description)
		})
	}
}

func TestAddFeedRejects(t *testing.T) {
	srv := newFeedServer(t)

	tests := []struct {
		name   string
		req    AddFeedRequest
		target error
	}{
		{name: "ftp url", req: AddFeedRequest{PlaceID: 1, URL: "ftp://x/feed.xml"}, target: ErrInvalidURL},
		{name: "relative url", req: AddFeedRequest{PlaceID: 1, URL: "feed.xml"}, target: ErrInvalidURL},
		{name: "unknown place", req: AddFeedRequest{PlaceID: 9, URL: srv.URL + "/feed.xml"}, target: domain.ErrNotFound},
		{name: "atom", req: AddFeedRequest{PlaceID: 1, URL: srv.URL + "/atom.xml"}, target: ErrInvalidFeed},
		{name: "malformed", req: AddFeedRequest{PlaceID: 1, URL: srv.URL + "/broken.xml"}, target: parser.ErrMalformedXML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithPlace()
			_, err := newTestCatalog(store).AddFeed(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.target)
			assert.Empty(t, store.feeds)
			assert.Zero(t, store.writes())
		})
	}
}

func TestAddFeedTwice(t *testing.T) {
	srv := newFeedServer(t)
	store := storeWithPlace()
	c := newTestCatalog(store)
	req := AddFeedRequest{PlaceID: 1, URL: srv.URL + "/feed.xml"}

	_, err := c.AddFeed(context.Background(), req)
	require.NoError(t, err)

	_, err = c.AddFeed(context.Background(), req)
	assert.ErrorIs(t, err, ErrFeedExists)
	assert.Len(t, store.feeds, 1)
}

func TestAddPlace(t *testing.T) {
	store := storeWithPlace()
	c := newTestCatalog(store)
	coords := domain.Coordinates{Lat: 50.33, Lon: 8.75}

	place, err := c.AddPlace(context.Background(), domain.Place{
		Name:     " Bad Nauheim ",
		ParentID: 1,
		Coords:   &coords,
		Link:     "https://www.bad-nauheim.de",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), place.ID)
	assert.Equal(t, "Bad Nauheim", place.Name)
	assert.Equal(t, "bad-nauheim", place.Slug)
	require.Contains(t, store.places, int64(2))
	assert.Equal(t, &coords, store.places[2].Coords)
}

func TestAddPlaceRejects(t *testing.T) {
	tests := []struct {
		name   string
		place  domain.Place
		target error
	}{
		{name: "slug in use", place: domain.Place{Name: "Giessen"}, target: ErrPlaceExists},
		{name: "explicit slug in use", place: domain.Place{Name: "Other", Slug: "Gießen"}, target: ErrPlaceExists},
		{name: "unknown parent", place: domain.Place{Name: "Wetzlar", ParentID: 7}, target: domain.ErrNotFound},
		{name: "bad link", place: domain.Place{Name: "Wetzlar", Link: "mailto:x@y"}, target: ErrInvalidURL},
		{name: "empty slug", place: domain.Place{Name: "!!!"}, target: ErrEmptySlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithPlace()
			_, err := newTestCatalog(store).AddPlace(context.Background(), tt.place)
			assert.ErrorIs(t, err, tt.target)
			assert.Len(t, store.places, 1)
		})
	}

	_, err := newTestCatalog(storeWithPlace()).AddPlace(context.Background(), domain.Place{Name: "  "})
	assert.Error(t, err)
}
