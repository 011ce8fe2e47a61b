package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCoordinates = errors.New(`coordinates must look like "lat;lon"`)

// Coordinates хранятся в колонке coords типа POINT как (lat,lon).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseCoordinates разбирает строку вида "50.58;8.67".
func ParseCoordinates(s string) (Coordinates, error) {
	lat, lon, ok := strings.Cut(strings.TrimSpace(s), ";")
	if !ok {
		return Coordinates{}, ErrInvalidCoordinates
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrInvalidCoordinates, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil || lo < -180 || lo > 180 {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrInvalidCoordinates, lon)
	}
	return Coordinates{Lat: la, Lon: lo}, nil
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ";" + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Place - населенный пункт или район, к которому привязаны ленты.
type Place struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	ParentID         int64        `json:"parent,omitempty"`
	AdministrativeID string       `json:"administrative_id,omitempty"`
	Coords           *Coordinates `json:"coords,omitempty"`
	Description      string       `json:"description,omitempty"`
	Link             string       `json:"link,omitempty"`
	Created          time.Time    `json:"created"`
	Updated          time.Time    `json:"updated"`
	// Feeds заполняется только при выборке списка мест
	Feeds int `json:"feeds"`
}

// ListFilter ограничивает выборки команд list. Нулевые поля не фильтруют.
type ListFilter struct {
	Search  string
	PlaceID int64
	FeedID  int64
}

// ItemListing - строка вывода feeds list-items.
type ItemListing struct {
	ID      int64     `json:"id"`
	FeedID  int64     `json:"feed_id"`
	PlaceID int64     `json:"place_id"`
	Title   string    `json:"title"`
	PubDate time.Time `json:"pub_date"`
	Link    string    `json:"link"`
}
