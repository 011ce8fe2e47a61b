package domain

import "time"

// FeedType определяет формат разобранной ленты.
type FeedType int

const (
	FeedTypeInvalid FeedType = iota
	FeedTypeAtom10
	FeedTypeRSS20
)

func (t FeedType) String() string {
	switch t {
	case FeedTypeAtom10:
		return "atom-1.0"
	case FeedTypeRSS20:
		return "rss-2.0"
	default:
		return "invalid"
	}
}

// FeedItem - одна запись ленты. Две записи с одинаковым GUID считаются
// одной и той же логической записью между загрузками.
type FeedItem struct {
	Title       string
	GUID        string
	Description string
	Author      string
	Link        string
	// Нулевое значение означает, что дату разобрать не удалось.
	PubDate time.Time
}

// Feed - результат разбора синдикационного документа.
type Feed struct {
	Type          FeedType
	Title         string
	Description   string
	Generator     string
	Language      string
	Publisher     string
	Link          string
	Source        string
	LastBuildDate time.Time
	Items         []FeedItem
}

// IsValid сообщает, можно ли использовать ленту дальше по конвейеру.
// Atom пока не поддерживается и всегда невалиден.
func (f Feed) IsValid() bool {
	return f.Type == FeedTypeRSS20 && f.Source != ""
}
