package filter

import (
	"strings"

	"github.com/amishk599/leadradar/internal/model"
)

// KeywordFilter is a cheap pre-classifier gate on signal content. A signal
// passes when it contains any include keyword and none of the exclude
// keywords. Matching is case-insensitive. Empty include lists match all.
type KeywordFilter struct {
	include []string
	exclude []string
}

// NewKeywordFilter returns a filter over the given include/exclude keywords.
func NewKeywordFilter(include, exclude []string) *KeywordFilter {
	return &KeywordFilter{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
}

// Match returns true if the signal's content passes both keyword lists.
func (f *KeywordFilter) Match(signal model.Signal) bool {
	content := strings.ToLower(signal.Content)

	for _, kw := range f.exclude {
		if strings.Contains(content, kw) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}
