// Package describe generates human-readable operation descriptions
// from templates and pattern rules. The engine is a pure function of
// its configuration and the (kind, entity, verb) triple; it keeps no
// mutable state.
package describe

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/actionmesh/gateway/pkg/action"
	"github.com/actionmesh/gateway/pkg/pluralize"
)

// MatchType selects how a pattern rule matches a verb.
type MatchType string

// Pattern rule match types.
const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchPrefix   MatchType = "prefix"
	MatchSuffix   MatchType = "suffix"
	MatchRegex    MatchType = "regex"
)

// PatternRule maps verbs matching a pattern to a description template.
// Rules are evaluated in configured order; the first match wins.
type PatternRule struct {
	Kind     action.Kind `json:"kind" yaml:"kind"`
	Pattern  string      `json:"pattern" yaml:"pattern"`
	Match    MatchType   `json:"match" yaml:"match"`
	Template string      `json:"template" yaml:"template"`
}

// Config is the engine's external configuration. Template strings may
// use the placeholders {entity}, {entities}, {field}, {verb}, {kind}
// and {article} (the entity's indefinite article).
type Config struct {
	// Exact templates keyed by "{kind}.{verb}", lower-case.
	Exact map[string]string `json:"exact" yaml:"exact"`
	// FieldDescriptions humanize field names in getBy<Field> verbs,
	// keyed by lower-case field name ("email" -> "email address").
	FieldDescriptions map[string]string `json:"fieldDescriptions" yaml:"fieldDescriptions"`
	// FieldTemplate renders getBy<Field> verbs.
	FieldTemplate string `json:"fieldTemplate" yaml:"fieldTemplate"`
	// Patterns are evaluated in order after exact and field templates.
	Patterns []PatternRule `json:"patterns" yaml:"patterns"`
	// Fallback templates keyed by lower-case kind.
	Fallback map[string]string `json:"fallback" yaml:"fallback"`
}

// DefaultConfig returns the built-in template set.
func DefaultConfig() Config {
	return Config{
		Exact: map[string]string{
			"query.getall":   "Gets all {entities}",
			"query.get":      "Gets {article} {entity}",
			"command.create": "Creates a new {entity}",
			"command.update": "Updates {article} {entity}",
			"command.delete": "Deletes {article} {entity}",
		},
		FieldDescriptions: map[string]string{
			"email": "email address",
			"id":    "identifier",
		},
		FieldTemplate: "Gets {article} {entity} by {field}",
		Patterns: []PatternRule{
			{Kind: action.KindCommand, Pattern: "publish", Match: MatchContains, Template: "Publishes {article} {entity}"},
			{Kind: action.KindCommand, Pattern: "archive", Match: MatchContains, Template: "Archives {article} {entity}"},
			{Kind: action.KindQuery, Pattern: "count", Match: MatchPrefix, Template: "Counts {entities}"},
		},
		Fallback: map[string]string{
			"query":   "Gets {entity} data ({verb})",
			"command": "Executes {verb} on {article} {entity}",
		},
	}
}

// Engine renders operation descriptions.
type Engine struct {
	cfg Config
	pl  *pluralize.Pluralizer
}

// New creates an Engine with the given configuration and pluralizer.
func New(cfg Config, pl *pluralize.Pluralizer) *Engine {
	return &Engine{cfg: cfg, pl: pl}
}

// Describe renders the description for one operation. The override is
// the operation's explicit description, which wins when non-empty.
// Resolution order: override, exact "{kind}.{verb}" template,
// getBy<Field> field template, first matching pattern rule, kind
// fallback.
func (e *Engine) Describe(kind action.Kind, entity, verb, override string) string {
	if override != "" {
		return override
	}

	lowerKind := strings.ToLower(string(kind))
	lowerVerb := strings.ToLower(verb)

	if tmpl, ok := e.cfg.Exact[lowerKind+"."+lowerVerb]; ok {
		return e.render(tmpl, kind, entity, verb, "")
	}

	if field, ok := fieldOf(verb); ok && e.cfg.FieldTemplate != "" {
		return e.render(e.cfg.FieldTemplate, kind, entity, verb, field)
	}

	for _, rule := range e.cfg.Patterns {
		if rule.Kind != "" && rule.Kind != kind {
			continue
		}
		if matchVerb(rule, lowerVerb) {
			return e.render(rule.Template, kind, entity, verb, "")
		}
	}

	if tmpl, ok := e.cfg.Fallback[lowerKind]; ok {
		return e.render(tmpl, kind, entity, verb, "")
	}
	return ""
}

// fieldOf extracts the field name from a getBy<Field> verb.
func fieldOf(verb string) (string, bool) {
	lower := strings.ToLower(verb)
	if strings.HasPrefix(lower, "getby") && len(verb) > len("getby") {
		return verb[len("getby"):], true
	}
	return "", false
}

func matchVerb(rule PatternRule, lowerVerb string) bool {
	pattern := strings.ToLower(rule.Pattern)
	switch rule.Match {
	case MatchExact:
		return lowerVerb == pattern
	case MatchContains:
		return strings.Contains(lowerVerb, pattern)
	case MatchPrefix:
		return strings.HasPrefix(lowerVerb, pattern)
	case MatchSuffix:
		return strings.HasSuffix(lowerVerb, pattern)
	case MatchRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(lowerVerb)
	default:
		return false
	}
}

// render substitutes the template placeholders.
func (e *Engine) render(tmpl string, kind action.Kind, entity, verb, field string) string {
	singular := strings.ToLower(e.pl.Singularize(humanize(entity)))
	plural := strings.ToLower(e.pl.Pluralize(humanize(entity)))

	fieldText := ""
	if field != "" {
		key := strings.ToLower(field)
		if desc, ok := e.cfg.FieldDescriptions[key]; ok {
			fieldText = desc
		} else {
			fieldText = strings.ToLower(humanize(field))
		}
	}

	r := strings.NewReplacer(
		"{entity}", singular,
		"{entities}", plural,
		"{field}", fieldText,
		"{verb}", verb,
		"{kind}", string(kind),
		"{article}", article(singular),
	)
	return r.Replace(tmpl)
}

// humanize splits a camel-case name into space-separated words
// ("BlogPost" -> "Blog Post").
func humanize(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// article picks the indefinite article for a word.
func article(word string) string {
	if word == "" {
		return "a"
	}
	switch unicode.ToLower(rune(word[0])) {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}
