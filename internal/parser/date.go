package parser

import (
	"strings"
	"time"
)

var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
}

// Смещения именованных зон RFC 822. time.Parse не знает их смещений
// и считает такие даты UTC.
var zoneOffsets = map[string]string{
	"UT":  "+0000",
	"UTC": "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

func normalizeZone(s string) string {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s
	}
	if offset, ok := zoneOffsets[strings.ToUpper(s[i+1:])]; ok {
		return s[:i+1] + offset
	}
	return s
}

// parseDate разбирает дату в формате RFC 2822 и приводит ее к UTC.
// Для некорректной строки возвращается нулевое время.
func parseDate(dateStr string) time.Time {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return time.Time{}
	}
	s = normalizeZone(s)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
