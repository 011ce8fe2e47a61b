package storage

import (
	"placefeeds/internal/domain"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

var feedColumns = []string{
	"f.id",
	"f.title",
	"f.slug",
	"f.source",
	"f.link",
	"f.etag",
	`f."lastBuildDate"`,
	`f."lastFetch"`,
	"f.enabled",
	"f.data",
}

// feedsQuery строит выборку включенных лент по селектору.
// Приоритет полей селектора совпадает с domain.Selector.
func feedsQuery(sel domain.Selector) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(feedColumns...).From("feeds f")
	sb.Where(sb.Equal("f.enabled", true))

	switch {
	case sel.All:
	case sel.FeedID > 0:
		sb.Where(sb.Equal("f.id", sel.FeedID))
	case sel.PlaceID > 0:
		sb.Where(sb.Equal(`f."placeId"`, sel.PlaceID))
	case sel.PlaceSlug != "":
		sb.Join("places p", `p.id = f."placeId"`)
		sb.Where(sb.Equal("p.slug", sel.PlaceSlug))
	}

	sb.OrderBy("f.id").Asc()
	return sb.Build()
}

var placeColumns = []string{
	"p.id",
	"p.name",
	"p.slug",
	"p.parent",
	`p."administrativeId"`,
	"p.coords",
	"p.description",
	"p.link",
	"p.created",
	"p.updated",
}

var feedListColumns = []string{
	"f.id",
	`f."placeId"`,
	"f.title",
	"f.slug",
	"f.description",
	"f.source",
	"f.link",
	`f."lastFetch"`,
	"f.enabled",
}

func likePattern(search string) string {
	return "%" + search + "%"
}

// placeQuery выбирает одно место по значению колонки (p.id или p.slug).
func placeQuery(column string, value any) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(placeColumns...).From("places p")
	sb.Where(sb.Equal(column, value))
	return sb.Build()
}

// placesListQuery выбирает места вместе с числом привязанных лент.
func placesListQuery(search string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(append(append([]string{}, placeColumns...), "count(f.id)")...).From("places p")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "feeds f", `f."placeId" = p.id`)
	if search != "" {
		pattern := likePattern(search)
		sb.Where(sb.Or(sb.ILike("p.name", pattern), sb.ILike("p.slug", pattern)))
	}
	sb.GroupBy("p.id")
	sb.OrderBy("p.id").Asc()
	return sb.Build()
}

func insertPlaceQuery(p domain.Place, now time.Time) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("places")
	ib.Cols("name", "slug", "parent", `"administrativeId"`, "coords", "description", "link", "created", "updated", "data")
	ib.Values(
		p.Name,
		p.Slug,
		nullID(p.ParentID),
		nullString(p.AdministrativeID),
		point(p.Coords),
		nullString(p.Description),
		nullString(p.Link),
		now,
		now,
		"{}",
	)
	query, args := ib.Build()
	return query + " RETURNING id", args
}

func feedBySourceQuery(source string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(feedListColumns...).From("feeds f")
	sb.Where(sb.Equal("f.source", source))
	return sb.Build()
}

func insertFeedQuery(f domain.StoredFeed, now time.Time) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("feeds")
	ib.Cols(`"placeId"`, "slug", "title", "description", "source", "link", "etag", `"lastBuildDate"`, `"lastFetch"`, "created", "data")
	ib.Values(
		f.PlaceID,
		f.Slug,
		f.Title,
		nullString(f.Description),
		f.Source,
		nullString(f.Link),
		nullString(f.ETag),
		nullTime(f.LastBuildDate),
		nullTime(f.LastFetch),
		now,
		"{}",
	)
	query, args := ib.Build()
	return query + " RETURNING id", args
}

// feedsListQuery выбирает все ленты, в том числе выключенные.
func feedsListQuery(filter domain.ListFilter) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(feedListColumns...).From("feeds f")
	if filter.PlaceID > 0 {
		sb.Where(sb.Equal(`f."placeId"`, filter.PlaceID))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		sb.Where(sb.Or(sb.ILike("f.slug", pattern), sb.ILike("f.title", pattern)))
	}
	sb.OrderBy("f.id").Asc()
	return sb.Build()
}

// itemsListQuery выбирает записи по ленте или по месту, новые первыми.
func itemsListQuery(filter domain.ListFilter) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("i.id", `i."feedId"`, "p.id", "i.title", `i."pubDate"`, "i.link").From("items i")
	sb.Join("feeds f", `f.id = i."feedId"`)
	sb.Join("places p", `p.id = f."placeId"`)
	switch {
	case filter.FeedID > 0:
		sb.Where(sb.Equal(`i."feedId"`, filter.FeedID))
	case filter.PlaceID > 0:
		sb.Where(sb.Equal("p.id", filter.PlaceID))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		sb.Where(sb.Or(sb.ILike("i.title", pattern), sb.ILike("i.description", pattern)))
	}
	sb.OrderBy(`i."pubDate"`).Desc()
	return sb.Build()
}
