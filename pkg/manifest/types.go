// Package manifest provides manifest loading for gateway modules.
// A manifest declares the entities, irregular plural forms, description
// templates and discovery settings a deployment starts with; operations
// themselves are registered in code through operation sources.
package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/actionmesh/gateway/pkg/describe"
)

// IrregularPair declares a noun whose plural cannot be derived by rule.
type IrregularPair struct {
	Singular string `json:"singular" yaml:"singular"`
	Plural   string `json:"plural" yaml:"plural"`
}

// DiscoverySettings toggles the catalog discovery sources that run at
// startup and on the background refresh interval.
type DiscoverySettings struct {
	FromOperations  bool `json:"fromOperations" yaml:"fromOperations"`
	FromShapes      bool `json:"fromShapes" yaml:"fromShapes"`
	FromCollections bool `json:"fromCollections" yaml:"fromCollections"`
	// RefreshSeconds is the background discovery interval; zero disables
	// the refresh loop and discovery runs once at startup.
	RefreshSeconds int `json:"refreshSeconds" yaml:"refreshSeconds"`
}

// Manifest is the root manifest document.
type Manifest struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Requires is a semver constraint on the gateway version this
	// manifest was written for ("^1.0", ">= 1.2.0").
	Requires string `json:"requires,omitempty" yaml:"requires,omitempty"`

	Entities   []string        `json:"entities" yaml:"entities"`
	Irregulars []IrregularPair `json:"irregulars,omitempty" yaml:"irregulars,omitempty"`

	// Descriptions overrides parts of the built-in description template
	// set; empty sections fall back to the defaults.
	Descriptions describe.Config `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`

	Discovery DiscoverySettings `json:"discovery" yaml:"discovery"`
}

// CheckRequires verifies the manifest's Requires constraint against the
// running gateway version. A manifest without a constraint always
// passes.
func (m *Manifest) CheckRequires(gatewayVersion string) error {
	if m.Requires == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Requires)
	if err != nil {
		return fmt.Errorf("manifest %s has invalid requires constraint %q: %w", m.Name, m.Requires, err)
	}
	v, err := semver.NewVersion(gatewayVersion)
	if err != nil {
		return fmt.Errorf("invalid gateway version %q: %w", gatewayVersion, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("manifest %s requires gateway %s, running %s", m.Name, m.Requires, gatewayVersion)
	}
	return nil
}

// DescribeConfig returns the manifest's description templates merged
// over the built-in defaults. Section granularity: a non-empty section
// replaces the default section wholesale.
func (m *Manifest) DescribeConfig() describe.Config {
	cfg := describe.DefaultConfig()
	if len(m.Descriptions.Exact) > 0 {
		cfg.Exact = m.Descriptions.Exact
	}
	if len(m.Descriptions.FieldDescriptions) > 0 {
		cfg.FieldDescriptions = m.Descriptions.FieldDescriptions
	}
	if m.Descriptions.FieldTemplate != "" {
		cfg.FieldTemplate = m.Descriptions.FieldTemplate
	}
	if len(m.Descriptions.Patterns) > 0 {
		cfg.Patterns = m.Descriptions.Patterns
	}
	if len(m.Descriptions.Fallback) > 0 {
		cfg.Fallback = m.Descriptions.Fallback
	}
	return cfg
}
