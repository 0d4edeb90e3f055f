package operation

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/actionmesh/gateway/pkg/action"
	"github.com/actionmesh/gateway/pkg/catalog"
)

const logPrefix = "operation:registry"

// Registry indexes operation descriptors by (kind, entity, verb) and
// by conventional identifier. Resolutions are memoized for the life of
// the process unless Rebuild is called. Safe for concurrent use.
type Registry struct {
	catalog *catalog.Catalog
	sources []Source

	mu     sync.RWMutex
	index  map[string]*Descriptor // ResolutionKey -> descriptor
	byName map[string]*Descriptor // lower(Name) -> descriptor
	cache  map[string]*Descriptor // memoized resolutions

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

// NewRegistry creates a Registry over the given catalog and operation
// sources. Call Build before resolving.
func NewRegistry(cat *catalog.Catalog, sources ...Source) *Registry {
	return &Registry{
		catalog: cat,
		sources: sources,
		index:   make(map[string]*Descriptor),
		byName:  make(map[string]*Descriptor),
		cache:   make(map[string]*Descriptor),
	}
}

// Build scans every source and indexes its descriptors. Descriptors
// missing Kind, Entity or Verb are parsed from their conventional
// identifier using the same entity-suffix strategy as the action
// parser. A descriptor whose key collides with an earlier one is
// skipped with a warning; the first registration wins.
func (r *Registry) Build() error {
	index := make(map[string]*Descriptor)
	byName := make(map[string]*Descriptor)

	for _, src := range r.sources {
		for _, d := range src.Operations() {
			desc := d
			if desc.Name == "" {
				return fmt.Errorf("%s - source %s: descriptor without a name", logPrefix, src.Name())
			}
			if err := r.complete(&desc); err != nil {
				slog.Warn(fmt.Sprintf("%s - source %s: skipping %s: %v", logPrefix, src.Name(), desc.Name, err))
				continue
			}

			key := desc.Key()
			if prev, ok := index[key]; ok {
				slog.Warn(fmt.Sprintf("%s - duplicate operation %s: %s collides with %s", logPrefix, key, desc.Name, prev.Name))
				continue
			}
			index[key] = &desc
			byName[strings.ToLower(desc.Name)] = &desc
		}
	}

	r.mu.Lock()
	r.index = index
	r.byName = byName
	r.cache = make(map[string]*Descriptor)
	r.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - built index with %d operations from %d sources", logPrefix, len(index), len(r.sources)))
	return nil
}

// Rebuild re-scans all sources and drops the resolution cache. Used
// for explicit catalog refreshes.
func (r *Registry) Rebuild() error {
	return r.Build()
}

// complete fills Kind, Entity and Verb from the conventional
// identifier where unset, and canonicalizes the entity name.
func (r *Registry) complete(d *Descriptor) error {
	rest, kind, ok := splitKindSuffix(d.Name)
	if d.Kind == "" {
		if !ok {
			return fmt.Errorf("identifier %q has no Query/Command suffix", d.Name)
		}
		d.Kind = kind
	}

	if d.Entity == "" || d.Verb == "" {
		parsed := action.Parse(rest, r.catalog)
		// "GetAuthorByEmail" style identifiers put the entity before
		// "By"; the suffix match only sees the field name there.
		if !r.catalog.IsValid(parsed.EntityCandidate) {
			if idx := strings.Index(rest, "By"); idx > 0 {
				head := action.Parse(rest[:idx], r.catalog)
				if r.catalog.IsValid(head.EntityCandidate) {
					parsed.EntityCandidate = head.EntityCandidate
					parsed.Verb = head.Verb + rest[idx:]
				}
			}
		}
		if d.Entity == "" {
			d.Entity = parsed.EntityCandidate
		}
		if d.Verb == "" {
			d.Verb = parsed.Verb
		}
	}
	if d.Entity == "" {
		return fmt.Errorf("identifier %q yields no entity", d.Name)
	}

	d.Entity = r.catalog.CanonicalName(d.Entity)
	return nil
}

// Resolve finds the descriptor for (kind, entityGuess, verb). The
// entity guess is canonicalized first; on an index miss the literal
// conventional identifier verb+entity+kind is tried against the
// sources' type names, which covers multi-word entities the parse pass
// missed. Returns nil when both paths fail; a miss is not an error.
func (r *Registry) Resolve(kind action.Kind, entityGuess, verb string) *Descriptor {
	canonical := r.catalog.CanonicalName(entityGuess)
	key := ResolutionKey(kind, canonical, verb)

	r.mu.RLock()
	if d, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		r.cacheHits.Add(1)
		return d
	}
	r.cacheMisses.Add(1)
	d, ok := r.index[key]
	if !ok {
		for _, ident := range []string{verb + canonical + string(kind), verb + entityGuess + string(kind)} {
			if cand, found := r.byName[strings.ToLower(ident)]; found {
				d, ok = cand, true
				break
			}
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	// Memoize; misses are not cached so later registrations resolve.
	r.mu.Lock()
	r.cache[key] = d
	r.mu.Unlock()
	return d
}

// CacheStats returns the number of resolutions served from the
// memoization cache and the number that missed it.
func (r *Registry) CacheStats() (hits, misses uint64) {
	return r.cacheHits.Load(), r.cacheMisses.Load()
}

// ResolveLiteral looks up a descriptor by its conventional identifier.
func (r *Registry) ResolveLiteral(identifier string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[strings.ToLower(identifier)]
}

// List returns all indexed descriptors sorted by identifier.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, 0, len(r.index))
	for _, d := range r.index {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Identifiers returns the conventional identifiers of every descriptor
// across the sources, without building. Feeds entity discovery.
func (r *Registry) Identifiers() []string {
	var names []string
	for _, src := range r.sources {
		for _, d := range src.Operations() {
			if d.Name != "" {
				names = append(names, d.Name)
			}
		}
	}
	return names
}

// splitKindSuffix splits a conventional identifier into its body and
// kind ("GetAllAuthorsQuery" -> "GetAllAuthors", Query).
func splitKindSuffix(ident string) (string, action.Kind, bool) {
	lower := strings.ToLower(ident)
	switch {
	case strings.HasSuffix(lower, "query"):
		return ident[:len(ident)-len("query")], action.KindQuery, true
	case strings.HasSuffix(lower, "command"):
		return ident[:len(ident)-len("command")], action.KindCommand, true
	}
	return ident, "", false
}
