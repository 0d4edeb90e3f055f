// Package pluralize provides deterministic singular/plural word
// transforms with a runtime-mutable irregular-word table.
package pluralize

import (
	"strings"
	"sync"
	"unicode"
)

// Pluralizer converts English nouns between singular and plural form.
// The irregular table is consulted before the suffix rules and can be
// modified at runtime. Safe for concurrent use.
type Pluralizer struct {
	mu         sync.RWMutex
	irregulars map[string]string // singular (lower) -> plural (lower)
	reverse    map[string]string // plural (lower) -> singular (lower)
}

// defaultIrregulars are the built-in irregular noun pairs.
var defaultIrregulars = map[string]string{
	"person":   "people",
	"child":    "children",
	"man":      "men",
	"woman":    "women",
	"foot":     "feet",
	"tooth":    "teeth",
	"mouse":    "mice",
	"datum":    "data",
	"index":    "indices",
	"status":   "statuses",
	"criterion": "criteria",
}

// New creates a Pluralizer seeded with the default irregular table.
func New() *Pluralizer {
	p := &Pluralizer{
		irregulars: make(map[string]string, len(defaultIrregulars)),
		reverse:    make(map[string]string, len(defaultIrregulars)),
	}
	for s, pl := range defaultIrregulars {
		p.irregulars[s] = pl
		p.reverse[pl] = s
	}
	return p
}

// NewEmpty creates a Pluralizer with no irregular overrides.
func NewEmpty() *Pluralizer {
	return &Pluralizer{
		irregulars: make(map[string]string),
		reverse:    make(map[string]string),
	}
}

// AddIrregular registers an irregular singular/plural pair, replacing
// any previous override for the singular form.
func (p *Pluralizer) AddIrregular(singular, plural string) {
	s := strings.ToLower(singular)
	pl := strings.ToLower(plural)
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.irregulars[s]; ok {
		delete(p.reverse, old)
	}
	p.irregulars[s] = pl
	p.reverse[pl] = s
}

// RemoveIrregular removes the override for the given singular form.
func (p *Pluralizer) RemoveIrregular(singular string) {
	s := strings.ToLower(singular)
	p.mu.Lock()
	defer p.mu.Unlock()
	if pl, ok := p.irregulars[s]; ok {
		delete(p.reverse, pl)
		delete(p.irregulars, s)
	}
}

// ClearIrregulars removes every irregular override.
func (p *Pluralizer) ClearIrregulars() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.irregulars = make(map[string]string)
	p.reverse = make(map[string]string)
}

// Pluralize returns the plural form of word, preserving the casing of
// the first letter.
func (p *Pluralizer) Pluralize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)

	p.mu.RLock()
	irregular, ok := p.irregulars[lower]
	p.mu.RUnlock()
	if ok {
		return matchFirstCase(irregular, word)
	}

	// Suffix rules slice the original word so interior casing survives
	// ("BlogPost" -> "BlogPosts").
	switch {
	case endsInConsonantY(lower):
		return word[:len(word)-1] + "ies"
	case hasAnySuffix(lower, "s", "x", "z", "ch", "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "fe"):
		return word[:len(word)-2] + "ves"
	case strings.HasSuffix(lower, "f"):
		return word[:len(word)-1] + "ves"
	default:
		return word + "s"
	}
}

// Singularize returns the singular form of word, preserving the casing
// of the first letter. Suffix rules are applied longest-match first.
func (p *Pluralizer) Singularize(word string) string {
	if word == "" {
		return word
	}
	lower := strings.ToLower(word)

	p.mu.RLock()
	irregular, ok := p.reverse[lower]
	p.mu.RUnlock()
	if ok {
		return matchFirstCase(irregular, word)
	}

	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "ves") && len(lower) > 3:
		stem := word[:len(word)-3]
		// "knives"/"wives" restore "fe"; "wolves"/"leaves" restore "f".
		if strings.HasSuffix(strings.ToLower(stem), "i") {
			return stem + "fe"
		}
		return stem + "f"
	case hasAnySuffix(lower, "ses", "xes", "zes", "ches", "shes") && len(lower) > 3:
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// IsPlural reports whether word looks plural. This is a suffix
// heuristic and is knowingly imprecise: singular words ending in "s"
// (e.g. "status" without its irregular entry) are misclassified.
func (p *Pluralizer) IsPlural(word string) bool {
	if word == "" {
		return false
	}
	lower := strings.ToLower(word)

	p.mu.RLock()
	_, isIrregularPlural := p.reverse[lower]
	_, isIrregularSingular := p.irregulars[lower]
	p.mu.RUnlock()
	if isIrregularPlural {
		return true
	}
	if isIrregularSingular {
		return false
	}

	return hasAnySuffix(lower, "ies", "ves", "es", "s") && !strings.HasSuffix(lower, "ss")
}

func endsInConsonantY(lower string) bool {
	if !strings.HasSuffix(lower, "y") || len(lower) < 2 {
		return false
	}
	return !isVowel(rune(lower[len(lower)-2]))
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// matchFirstCase applies the first letter's casing from src onto out.
func matchFirstCase(out, src string) string {
	if out == "" || src == "" {
		return out
	}
	first := rune(src[0])
	if unicode.IsUpper(first) {
		return strings.ToUpper(out[:1]) + out[1:]
	}
	return strings.ToLower(out[:1]) + out[1:]
}
