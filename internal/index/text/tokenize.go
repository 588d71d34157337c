package text

import (
	"strings"
	"unicode"
)

// tokenize lower-cases text and splits it on non-alphanumeric boundaries,
// dropping any token in stopwords. It does not stem: posting-list terms
// must round-trip exactly through prefix/suffix/infix lookups, which a
// stemmer would defeat by merging distinct surface forms into one bucket.
func tokenize(text string, stopwords map[string]struct{}) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
