package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/actionmesh/gateway/pkg/describe"
)

func TestDefaultManifest(t *testing.T) {
	m := Default()

	if m.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", m.Version)
	}
	if len(m.Entities) == 0 {
		t.Fatal("expected entities, got none")
	}
	if !m.Discovery.FromOperations || !m.Discovery.FromShapes {
		t.Error("expected operation and shape discovery enabled by default")
	}
	if len(m.Irregulars) == 0 {
		t.Error("expected irregular pairs in default manifest")
	}
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	content := `{
		"name": "blog-manifest",
		"version": "2.1.0",
		"entities": ["Author", "BlogPost"],
		"discovery": {"fromOperations": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "blog-manifest" {
		t.Errorf("expected blog-manifest, got %s", m.Name)
	}
	if len(m.Entities) != 2 {
		t.Errorf("expected 2 entities, got %d", len(m.Entities))
	}
	if !m.Discovery.FromOperations {
		t.Error("expected operation discovery enabled")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	content := `
name: yaml-manifest
version: 1.3.0
entities:
  - Invoice
  - Customer
irregulars:
  - singular: person
    plural: people
descriptions:
  fieldTemplate: "Finds {article} {entity} by {field}"
discovery:
  fromShapes: true
  refreshSeconds: 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "yaml-manifest" {
		t.Errorf("expected yaml-manifest, got %s", m.Name)
	}
	if len(m.Entities) != 2 || m.Entities[0] != "Invoice" {
		t.Errorf("unexpected entities: %v", m.Entities)
	}
	if m.Discovery.RefreshSeconds != 60 {
		t.Errorf("expected refresh 60, got %d", m.Discovery.RefreshSeconds)
	}
	if m.Descriptions.FieldTemplate == "" {
		t.Error("expected field template from yaml")
	}
}

func TestLoadSkipsUnparseableAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Broken file is skipped; no other path exists, so default wins.
	if m.Name != "gateway-default" {
		t.Errorf("expected default manifest, got %s", m.Name)
	}
}

func TestLoadEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env-manifest.json")
	if err := os.WriteFile(path, []byte(`{"name":"from-env","version":"1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATEWAY_MANIFEST_FILE", path)

	m, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "from-env" {
		t.Errorf("expected from-env, got %s", m.Name)
	}
}

func TestCheckRequires(t *testing.T) {
	m := &Manifest{Name: "m", Requires: "^1.2"}

	if err := m.CheckRequires("1.3.0"); err != nil {
		t.Errorf("expected 1.3.0 to satisfy ^1.2: %v", err)
	}
	if err := m.CheckRequires("2.0.0"); err == nil {
		t.Error("expected 2.0.0 to violate ^1.2")
	}
	if err := m.CheckRequires("not-a-version"); err == nil {
		t.Error("expected error for invalid gateway version")
	}

	none := &Manifest{Name: "m"}
	if err := none.CheckRequires("0.0.1"); err != nil {
		t.Errorf("expected empty constraint to pass: %v", err)
	}

	bad := &Manifest{Name: "m", Requires: ">>nope"}
	if err := bad.CheckRequires("1.0.0"); err == nil {
		t.Error("expected error for invalid constraint")
	}
}

func TestMergeManifests(t *testing.T) {
	base := Default()
	override := &Manifest{
		Name:     "site-override",
		Entities: []string{"Author", "Invoice"},
		Irregulars: []IrregularPair{
			{Singular: "person", Plural: "folks"},
			{Singular: "criterion", Plural: "criteria"},
		},
		Discovery: DiscoverySettings{FromOperations: true, RefreshSeconds: 30},
	}

	merged := Merge(base, override)

	if merged.Name != "site-override" {
		t.Errorf("expected override name, got %s", merged.Name)
	}
	// Entities unioned without duplicating Author
	count := 0
	for _, e := range merged.Entities {
		if e == "Author" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected Author exactly once, got %d", count)
	}
	hasInvoice := false
	for _, e := range merged.Entities {
		if e == "Invoice" {
			hasInvoice = true
		}
	}
	if !hasInvoice {
		t.Error("expected Invoice from override")
	}

	// Override pair wins on the same singular
	for _, p := range merged.Irregulars {
		if p.Singular == "person" && p.Plural != "folks" {
			t.Errorf("expected override plural folks, got %s", p.Plural)
		}
	}

	if merged.Discovery.RefreshSeconds != 30 {
		t.Errorf("expected override discovery settings, got %+v", merged.Discovery)
	}
}

func TestDescribeConfigMergesOverDefaults(t *testing.T) {
	m := &Manifest{
		Descriptions: describe.Config{
			FieldDescriptions: map[string]string{"slug": "URL slug"},
		},
	}

	cfg := m.DescribeConfig()
	if cfg.FieldDescriptions["slug"] != "URL slug" {
		t.Error("expected override field description")
	}
	// Untouched sections keep their defaults.
	if _, ok := cfg.Exact["query.getall"]; !ok {
		t.Error("expected default exact templates to remain")
	}
	if cfg.FieldTemplate == "" {
		t.Error("expected default field template to remain")
	}
}
