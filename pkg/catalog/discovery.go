package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const discoveryLogPrefix = "catalog:discovery"

// Source supplies candidate entity names from one discovery location
// (domain shapes, operation identifiers, persistence collections, ...).
// Sources are independently fallible: a failing source is logged and
// skipped, never aborting the pass.
type Source interface {
	// Name tags entries produced by this source.
	Name() string
	// Entities returns candidate entity names.
	Entities(ctx context.Context) ([]string, error)
}

// Discover runs every source and registers what it finds. A failing
// source leaves the catalog in whatever partial state the pass reached;
// there is no rollback and no global lock across sources.
func (c *Catalog) Discover(ctx context.Context, sources ...Source) {
	for _, src := range sources {
		names, err := src.Entities(ctx)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - source %s failed: %v", discoveryLogPrefix, src.Name(), err))
			continue
		}
		for _, name := range names {
			c.register(name, src.Name())
		}
		slog.Info(fmt.Sprintf("%s - source %s contributed %d names", discoveryLogPrefix, src.Name(), len(names)))
	}
}

// ShapeInfo describes a domain-model shape offered to RegisterShape.
type ShapeInfo struct {
	Name   string
	Fields []string
	// Entity marks the shape as an entity explicitly, bypassing the
	// field heuristic.
	Entity bool
}

// RegisterShape registers the shape's name when it looks entity-like:
// either the explicit marker is set, or the shape carries an identity
// field plus created/updated-style timestamp fields. Returns whether
// the shape was accepted.
func (c *Catalog) RegisterShape(s ShapeInfo) bool {
	if s.Name == "" {
		return false
	}
	if !s.Entity && !entityLike(s.Name, s.Fields) {
		return false
	}
	c.register(s.Name, SourceShape)
	return true
}

// entityLike is the identity-plus-timestamps heuristic.
func entityLike(name string, fields []string) bool {
	var hasID, hasCreated, hasUpdated bool
	lowerName := strings.ToLower(name)
	for _, f := range fields {
		lf := strings.ToLower(f)
		switch {
		case lf == "id" || lf == lowerName+"id" || lf == lowerName+"_id":
			hasID = true
		case strings.Contains(lf, "created"):
			hasCreated = true
		case strings.Contains(lf, "updated") || strings.Contains(lf, "modified"):
			hasUpdated = true
		}
	}
	return hasID && hasCreated && hasUpdated
}

// StaticSource is a Source over a fixed name list, used for manifest
// supplied entities and in tests.
type StaticSource struct {
	Tag   string
	Names []string
}

// Name returns the source tag.
func (s *StaticSource) Name() string {
	if s.Tag == "" {
		return SourceManual
	}
	return s.Tag
}

// Entities returns the configured names.
func (s *StaticSource) Entities(_ context.Context) ([]string, error) {
	return s.Names, nil
}

// OperationNameSource derives entity names from conventional operation
// identifiers (e.g. "GetAllAuthorsQuery") by stripping the recognized
// kind suffix and verb prefix.
type OperationNameSource struct {
	// Identifiers are conventional operation type names.
	Identifiers []string
	// Verbs are recognized verb prefixes, checked longest first.
	Verbs []string
	// Singularize maps the remaining token to singular form.
	Singularize func(string) string
}

// Name returns the operation source tag.
func (s *OperationNameSource) Name() string { return SourceOperation }

// Entities extracts entity candidates from the identifiers.
func (s *OperationNameSource) Entities(_ context.Context) ([]string, error) {
	verbs := make([]string, len(s.Verbs))
	copy(verbs, s.Verbs)
	// Longest verb first so "GetAll" wins over "Get".
	for i := 0; i < len(verbs); i++ {
		for j := i + 1; j < len(verbs); j++ {
			if len(verbs[j]) > len(verbs[i]) {
				verbs[i], verbs[j] = verbs[j], verbs[i]
			}
		}
	}

	var names []string
	for _, ident := range s.Identifiers {
		rest, ok := stripKindSuffix(ident)
		if !ok {
			continue
		}
		lower := strings.ToLower(rest)
		for _, verb := range verbs {
			lv := strings.ToLower(verb)
			if strings.HasPrefix(lower, lv) && len(rest) > len(verb) {
				rest = rest[len(verb):]
				break
			}
		}
		// "AuthorByEmail" keeps only the entity part before "By".
		if idx := strings.Index(rest, "By"); idx > 0 {
			rest = rest[:idx]
		}
		if rest == "" {
			continue
		}
		if s.Singularize != nil {
			rest = s.Singularize(rest)
		}
		names = append(names, rest)
	}
	return names, nil
}

// stripKindSuffix removes a trailing Query/Command kind suffix.
func stripKindSuffix(ident string) (string, bool) {
	lower := strings.ToLower(ident)
	switch {
	case strings.HasSuffix(lower, "query"):
		return ident[:len(ident)-len("query")], true
	case strings.HasSuffix(lower, "command"):
		return ident[:len(ident)-len("command")], true
	}
	return ident, false
}

// DefaultVerbs are the verb prefixes recognized when deriving entity
// names from operation identifiers.
var DefaultVerbs = []string{
	"GetAll", "GetBy", "Get", "List", "Create", "Update", "Delete",
	"Add", "Remove", "Set", "Find", "Search", "Publish",
}
