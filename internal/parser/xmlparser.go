package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"placefeeds/internal/domain"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	// ErrMalformedXML - документ не является корректным XML.
	ErrMalformedXML = errors.New("malformed xml")
	// ErrNoChannel - RSS документ не содержит ровно один непустой channel.
	ErrNoChannel = errors.New("rss document must contain exactly one channel")
)

// node - универсальное представление XML элемента. Пространства имен
// отбрасываются: сравнение идет только по локальному имени тега.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr
	Text    string
	Nodes   []node
	// content хранит текст и дочерние элементы в порядке документа
	content []piece
}

// piece - фрагмент содержимого: текст или индекс в Nodes (child >= 0).
type piece struct {
	child int
	text  string
}

func (n *node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.XMLName = start.Name
	n.Attrs = start.Attr

	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child node
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.content = append(n.content, piece{child: len(n.Nodes)})
			n.Nodes = append(n.Nodes, child)
		case xml.CharData:
			s := string(t)
			sb.WriteString(s)
			n.content = append(n.content, piece{child: -1, text: s})
		case xml.EndElement:
			n.Text = sb.String()
			return nil
		}
	}
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// text склеивает весь текст элемента и его потомков в порядке документа.
func (n *node) text() string {
	if len(n.Nodes) == 0 {
		return n.Text
	}
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *node) writeText(sb *strings.Builder) {
	for _, p := range n.content {
		if p.child < 0 {
			sb.WriteString(p.text)
			continue
		}
		n.Nodes[p.child].writeText(sb)
	}
}

func (n *node) empty() bool {
	return len(n.Nodes) == 0 && strings.TrimSpace(n.Text) == ""
}

func (n *node) count(local string) int {
	c := 0
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			c++
		}
		c += n.Nodes[i].count(local)
	}
	return c
}

func (n *node) find(local string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
		if found := n.Nodes[i].find(local); found != nil {
			return found
		}
	}
	return nil
}

type XMLParser struct {
	log *slog.Logger
}

func New(log *slog.Logger) *XMLParser {
	return &XMLParser{
		log: log.With(slog.String("component", "parser")),
	}
}

// Parse разбирает синдикационный документ. Для корня, отличного от rss 2.0
// (в том числе Atom), возвращается пустая невалидная лента без ошибки.
func (p *XMLParser) Parse(ctx context.Context, reader io.Reader) (*domain.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var root node
	decoder := xml.NewDecoder(reader)
	// Документы в ISO-8859-1, windows-1251 и т.п. перекодируются в UTF-8
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&root); err != nil {
		p.log.Warn(
			"Failed to decode XML",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}

	switch root.XMLName.Local {
	case "rss":
		version := root.attr("version")
		if isVersion20(version) {
			return p.parseRSS2(&root)
		}
		p.log.Debug("Unsupported RSS version", slog.String("version", version))
	case "feed":
		p.log.Debug("Atom feeds are not supported yet")
	default:
		p.log.Debug("Unknown root element", slog.String("root", root.XMLName.Local))
	}
	return &domain.Feed{Type: domain.FeedTypeInvalid}, nil
}

func (p *XMLParser) parseRSS2(root *node) (*domain.Feed, error) {
	if c := root.count("channel"); c != 1 {
		p.log.Warn("Unexpected number of channels", slog.Int("channels", c))
		return nil, ErrNoChannel
	}
	channel := root.find("channel")
	if channel.empty() {
		return nil, ErrNoChannel
	}

	feed := domain.Feed{Type: domain.FeedTypeRSS20}
	for i := range channel.Nodes {
		e := &channel.Nodes[i]
		switch e.XMLName.Local {
		case "title":
			feed.Title = strings.TrimSpace(e.text())
		case "description":
			feed.Description = strings.TrimSpace(e.text())
		case "generator":
			feed.Generator = strings.TrimSpace(e.text())
		// "langauge" встречается в старых данных, поэтому принимаем оба варианта.
		case "language", "langauge":
			feed.Language = strings.TrimSpace(e.text())
		case "managingDirector":
			feed.Publisher = strings.TrimSpace(e.text())
		case "link":
			switch e.attr("rel") {
			case "self":
				feed.Source = strings.TrimSpace(e.attr("href"))
			case "":
				feed.Link = strings.TrimSpace(e.text())
			}
		case "lastBuildDate":
			feed.LastBuildDate = parseDate(e.text())
		case "item":
			if e.empty() {
				continue
			}
			feed.Items = append(feed.Items, parseItem(e))
		}
	}
	return &feed, nil
}

func parseItem(e *node) domain.FeedItem {
	var item domain.FeedItem
	authorSet := false
	for i := range e.Nodes {
		ie := &e.Nodes[i]
		switch ie.XMLName.Local {
		case "title":
			item.Title = strings.TrimSpace(ie.text())
		case "link":
			item.Link = strings.TrimSpace(ie.text())
		case "guid":
			item.GUID = strings.TrimSpace(ie.text())
		case "description":
			item.Description = ie.text()
		case "author", "creator":
			if !authorSet {
				item.Author = strings.TrimSpace(ie.text())
				authorSet = true
			}
		case "pubDate":
			item.PubDate = parseDate(ie.text())
		}
	}
	return item
}

// isVersion20 сравнивает версию по числовым сегментам, так что "2.0" и "2.00" равны.
func isVersion20(version string) bool {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) != 2 {
		return false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return major == 2 && minor == 0
}
