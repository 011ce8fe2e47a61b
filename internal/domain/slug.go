package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var umlauts = strings.NewReplacer("ß", "ss", "ä", "ae", "ö", "oe", "ü", "ue")

// Slugify строит slug из произвольной строки: нижний регистр, немецкие
// умлауты транслитерируются, прочие диакритические знаки отбрасываются,
// пробелы и "_" становятся "-". Остаются только a-z, 0-9 и "-".
func Slugify(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	s = umlauts.Replace(s)

	var sb strings.Builder
	// После NFD "é" распадается на "e" и комбинируемый знак, который отбрасывается
	for _, r := range norm.NFD.String(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		case r == ' ', r == '_':
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
