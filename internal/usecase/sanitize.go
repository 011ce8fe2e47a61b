package usecase

import (
	"regexp"
	"strings"
)

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// cleanDescription схлопывает пробельные символы и удаляет разметку.
func cleanDescription(desc string) string {
	return tagRegex.ReplaceAllString(strings.Join(strings.Fields(desc), " "), "")
}
