// Package catalog maintains the process-wide registry of canonical
// entity names. The catalog is append-only: entries are discovered at
// startup and may be learned at any later point, but never removed.
package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/actionmesh/gateway/pkg/pluralize"
)

const logPrefix = "catalog:catalog"

// Discovery source tags recorded on catalog entries.
const (
	SourceManual     = "manual"
	SourceShape      = "shape"
	SourceOperation  = "operation"
	SourceCollection = "collection"
	SourceLearned    = "learned"
)

// Entry is one canonical entity name plus the source that produced it.
type Entry struct {
	Canonical string `json:"canonical"`
	Source    string `json:"source"`
}

// Catalog is the entity name registry. Safe for concurrent reads and
// inserts; duplicate registrations of the same canonical name are
// idempotent.
type Catalog struct {
	pl       *pluralize.Pluralizer
	mu       sync.RWMutex
	entries  map[string]Entry // lower(canonical) -> entry
	observer func(Entry)
}

// New creates an empty Catalog backed by the given pluralizer.
func New(pl *pluralize.Pluralizer) *Catalog {
	return &Catalog{
		pl:      pl,
		entries: make(map[string]Entry),
	}
}

// Pluralizer returns the pluralizer the catalog normalizes with.
func (c *Catalog) Pluralizer() *pluralize.Pluralizer {
	return c.pl
}

// Pluralize returns the plural form of word. Exposed so the catalog
// satisfies the action parser's EntityNames interface.
func (c *Catalog) Pluralize(word string) string {
	return c.pl.Pluralize(word)
}

// Register adds a canonical entity name from an explicit caller.
func (c *Catalog) Register(name string) {
	c.register(name, SourceManual)
}

// register inserts name under the given source tag. Existing entries
// win: a name learned once keeps its original source.
func (c *Catalog) register(name, source string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	// Canonical names are singular with an exported first letter.
	canonical := exportName(c.pl.Singularize(name))
	key := strings.ToLower(canonical)

	entry := Entry{Canonical: canonical, Source: source}

	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return
	}
	c.entries[key] = entry
	observer := c.observer
	c.mu.Unlock()

	slog.Debug(fmt.Sprintf("%s - registered entity %s (source=%s)", logPrefix, canonical, source))
	if observer != nil {
		observer(entry)
	}
}

// SetObserver installs a callback invoked once per newly registered
// entity. The callback runs outside the catalog lock.
func (c *Catalog) SetObserver(fn func(Entry)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// IsValid reports whether name, its singular form, or its plural form
// matches a known entity, case-insensitively.
func (c *Catalog) IsValid(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// CanonicalName normalizes name to its canonical singular form. When
// the name is unknown but plausible it is auto-registered as a learned
// entity; this is the documented learning fallback, so the set of
// known entities grows over the process lifetime.
func (c *Catalog) CanonicalName(name string) string {
	if canonical, ok := c.lookup(name); ok {
		return canonical
	}

	singular := c.pl.Singularize(name)
	canonical := exportName(singular)
	if plausible(canonical) {
		c.register(canonical, SourceLearned)
	}
	return canonical
}

// lookup checks the exact name, then its singular form, then its
// plural form against the registered entries.
func (c *Catalog) lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	keys := []string{
		strings.ToLower(name),
		strings.ToLower(c.pl.Singularize(name)),
		strings.ToLower(c.pl.Pluralize(name)),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			return e.Canonical, true
		}
	}
	return "", false
}

// ListNames returns the canonical names in sorted order.
func (c *Catalog) ListNames() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Canonical)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// ListEntries returns a snapshot of all entries in canonical order.
func (c *Catalog) ListEntries() []Entry {
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Canonical < entries[j].Canonical })
	return entries
}

// Len returns the number of registered entities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// plausible reports whether a name looks like an entity identifier:
// letters only, at least two characters.
func plausible(name string) bool {
	if len(name) < 2 {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// exportName upper-cases the first letter so canonical names follow
// exported identifier casing ("category" -> "Category").
func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
