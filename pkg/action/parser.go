// Package action classifies free-form action strings into an operation
// kind, an entity candidate, and a verb.
package action

import (
	"strings"
	"unicode"
)

// Kind is the Query/Command classification of an action.
type Kind string

// Operation kinds.
const (
	KindQuery   Kind = "Query"
	KindCommand Kind = "Command"
)

// Parsed is the result of parsing an action string. EntityCandidate is
// uncanonicalized and must be passed through the entity catalog before
// use.
type Parsed struct {
	Kind            Kind
	EntityCandidate string
	Verb            string
}

// EntityNames supplies the current set of known entity names plus
// their plural forms. The catalog satisfies this.
type EntityNames interface {
	ListNames() []string
	Pluralize(word string) string
}

// ClassifyKind applies the bare prefix rule: an action starting with
// "get" (case-insensitive) is a Query, anything else a Command. There
// is deliberately no support for synonyms like "list" or "find"; the
// rule is preserved for behavioral compatibility.
func ClassifyKind(action string) Kind {
	if strings.HasPrefix(strings.ToLower(action), "get") {
		return KindQuery
	}
	return KindCommand
}

// Parse splits action into (kind, entityCandidate, verb). Among the
// known entity names (singular and plural forms), the longest
// case-insensitive suffix of the action wins; the remaining prefix is
// the verb. Without a suffix match, the action is split at letter-case
// transitions and the trailing one or two tokens are taken as the
// entity.
func Parse(action string, entities EntityNames) Parsed {
	kind := ClassifyKind(action)
	lower := strings.ToLower(action)

	var bestEntity, bestMatch string
	for _, name := range entities.ListNames() {
		for _, form := range []string{name, entities.Pluralize(name)} {
			lf := strings.ToLower(form)
			if len(lf) >= len(lower) {
				continue
			}
			if strings.HasSuffix(lower, lf) && len(lf) > len(bestMatch) {
				bestEntity = name
				bestMatch = lf
			}
		}
	}

	if bestEntity != "" {
		verb := action[:len(action)-len(bestMatch)]
		return Parsed{Kind: kind, EntityCandidate: bestEntity, Verb: exportVerb(verb)}
	}

	entity, verb := splitByCase(action)
	return Parsed{Kind: kind, EntityCandidate: entity, Verb: exportVerb(verb)}
}

// splitByCase tokenizes the action at lower-to-upper transitions and
// assumes the trailing tokens form the entity. Two trailing tokens are
// joined when at least three tokens exist ("createBlogPost" ->
// entity "BlogPost", verb "create").
func splitByCase(action string) (entity, verb string) {
	tokens := tokenize(action)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	case 2:
		return tokens[1], tokens[0]
	default:
		last2 := tokens[len(tokens)-2] + tokens[len(tokens)-1]
		return last2, strings.Join(tokens[:len(tokens)-2], "")
	}
}

// tokenize splits at lower-to-upper letter-case transitions.
func tokenize(s string) []string {
	var tokens []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			tokens = append(tokens, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		tokens = append(tokens, string(runes[start:]))
	}
	return tokens
}

// exportVerb upper-cases the verb's first letter ("getAll" -> "GetAll").
func exportVerb(verb string) string {
	if verb == "" {
		return verb
	}
	return strings.ToUpper(verb[:1]) + verb[1:]
}
