package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const logPrefix = "manifest:loader"

// Load loads a manifest from file paths or environment.
// It tries paths in order: first any paths passed in, then the
// GATEWAY_MANIFEST_FILE env var, then defaults.
// So an explicit path (e.g. from a flag) is tried before the env var.
func Load(paths ...string) (*Manifest, error) {
	// Build path list: passed paths first, then env, then defaults
	all := make([]string, 0, len(paths)+4)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("GATEWAY_MANIFEST_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/manifest.yaml", "config/manifest.json", "manifest.json")
	paths = all

	for _, p := range paths {
		if p == "" {
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		m, err := decode(p, data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse manifest file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded manifest from %s", logPrefix, p))
		return m, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default manifest", logPrefix))
	return Default(), nil
}

// decode picks the codec by file extension; anything not .yaml/.yml is
// treated as JSON.
func decode(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Default returns the embedded fallback manifest.
func Default() *Manifest {
	return &Manifest{
		Name:        "gateway-default",
		Version:     "1.0.0",
		Description: "Default gateway manifest",
		Entities:    []string{"Author", "BlogPost", "Category", "Tag"},
		Irregulars: []IrregularPair{
			{Singular: "person", Plural: "people"},
		},
		Discovery: DiscoverySettings{
			FromOperations:  true,
			FromShapes:      true,
			FromCollections: true,
			RefreshSeconds:  300,
		},
	}
}

// Merge merges an override manifest into a base manifest. Entities and
// irregulars are unioned; scalar fields and description sections from
// the override win when set.
func Merge(base, override *Manifest) *Manifest {
	merged := *base

	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Requires != "" {
		merged.Requires = override.Requires
	}

	// Union entities, preserving base order
	seen := make(map[string]bool, len(base.Entities))
	merged.Entities = append([]string(nil), base.Entities...)
	for _, e := range base.Entities {
		seen[strings.ToLower(e)] = true
	}
	for _, e := range override.Entities {
		if !seen[strings.ToLower(e)] {
			merged.Entities = append(merged.Entities, e)
			seen[strings.ToLower(e)] = true
		}
	}

	// Union irregulars, override pairs win on the same singular
	pairs := make(map[string]IrregularPair, len(base.Irregulars))
	order := make([]string, 0, len(base.Irregulars)+len(override.Irregulars))
	for _, p := range base.Irregulars {
		key := strings.ToLower(p.Singular)
		if _, ok := pairs[key]; !ok {
			order = append(order, key)
		}
		pairs[key] = p
	}
	for _, p := range override.Irregulars {
		key := strings.ToLower(p.Singular)
		if _, ok := pairs[key]; !ok {
			order = append(order, key)
		}
		pairs[key] = p
	}
	merged.Irregulars = make([]IrregularPair, 0, len(order))
	for _, key := range order {
		merged.Irregulars = append(merged.Irregulars, pairs[key])
	}

	if len(override.Descriptions.Exact) > 0 {
		merged.Descriptions.Exact = override.Descriptions.Exact
	}
	if len(override.Descriptions.FieldDescriptions) > 0 {
		merged.Descriptions.FieldDescriptions = override.Descriptions.FieldDescriptions
	}
	if override.Descriptions.FieldTemplate != "" {
		merged.Descriptions.FieldTemplate = override.Descriptions.FieldTemplate
	}
	if len(override.Descriptions.Patterns) > 0 {
		merged.Descriptions.Patterns = override.Descriptions.Patterns
	}
	if len(override.Descriptions.Fallback) > 0 {
		merged.Descriptions.Fallback = override.Descriptions.Fallback
	}

	merged.Discovery = override.Discovery

	return &merged
}
