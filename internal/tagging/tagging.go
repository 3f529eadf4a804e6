// Package tagging derives an asset category from its thumbnail file name.
package tagging

import (
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// Tagger matches file names against an ordered keyword list. It is safe for
// concurrent use and holds no mutable state after construction.
type Tagger struct {
	keywords []string
	folded   []string
}

// New builds a Tagger for categories. Order is preserved; blank entries and
// duplicates are dropped.
func New(categories []string) *Tagger {
	t := &Tagger{}
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		t.keywords = append(t.keywords, c)
		t.folded = append(t.folded, fold.String(c))
	}
	return t
}

// Categories returns the keyword list in match order.
func (t *Tagger) Categories() []string {
	return append([]string(nil), t.keywords...)
}

// Match returns the first configured keyword, in list order, contained in the
// base name of filename. Matching is case-insensitive. The second result is
// false when nothing matches.
func (t *Tagger) Match(filename string) (string, bool) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", false
	}
	name = path.Base(filepath.ToSlash(name))
	// Caser keeps internal state; fold on a fresh copy per call.
	folded := cases.Fold().String(name)
	for idx, keyword := range t.folded {
		if strings.Contains(folded, keyword) {
			return t.keywords[idx], true
		}
	}
	return "", false
}
