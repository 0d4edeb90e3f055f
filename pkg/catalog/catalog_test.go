package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/actionmesh/gateway/pkg/pluralize"
)

const testPrefix = "catalog:catalog_test"

func newTestCatalog() *Catalog {
	return New(pluralize.New())
}

func TestRegister_Idempotent(t *testing.T) {
	c := newTestCatalog()
	c.Register("Category")
	c.Register("Category")
	c.Register("category")

	if got := c.Len(); got != 1 {
		t.Fatalf("%s - Len() = %d, want 1", testPrefix, got)
	}
	names := c.ListNames()
	if len(names) != 1 || names[0] != "Category" {
		t.Errorf("%s - ListNames() = %v, want [Category]", testPrefix, names)
	}
}

func TestIsValid_Forms(t *testing.T) {
	c := newTestCatalog()
	c.Register("Category")

	for _, name := range []string{"Category", "category", "categories", "CATEGORY", "Categories"} {
		if !c.IsValid(name) {
			t.Errorf("%s - IsValid(%q) = false, want true", testPrefix, name)
		}
	}
	if c.IsValid("widget") {
		t.Errorf("%s - IsValid(widget) = true for unknown entity", testPrefix)
	}
}

func TestCanonicalName_Known(t *testing.T) {
	c := newTestCatalog()
	c.Register("BlogPost")

	for _, name := range []string{"blogpost", "BlogPosts", "blogposts"} {
		if got := c.CanonicalName(name); got != "BlogPost" {
			t.Errorf("%s - CanonicalName(%q) = %q, want BlogPost", testPrefix, name, got)
		}
	}
}

func TestCanonicalName_LearnsUnknown(t *testing.T) {
	c := newTestCatalog()

	got := c.CanonicalName("widgets")
	if got != "Widget" {
		t.Fatalf("%s - CanonicalName(widgets) = %q, want Widget", testPrefix, got)
	}
	if !c.IsValid("widget") {
		t.Errorf("%s - expected widget to be learned", testPrefix)
	}

	entries := c.ListEntries()
	if len(entries) != 1 || entries[0].Source != SourceLearned {
		t.Errorf("%s - entries = %+v, want one learned entry", testPrefix, entries)
	}
}

func TestCanonicalName_ImplausibleNotLearned(t *testing.T) {
	c := newTestCatalog()

	c.CanonicalName("x")
	c.CanonicalName("not-a-name!")
	if got := c.Len(); got != 0 {
		t.Errorf("%s - Len() = %d, want 0 (implausible names must not be learned)", testPrefix, got)
	}
}

func TestRegisterShape_Heuristic(t *testing.T) {
	c := newTestCatalog()

	cases := []struct {
		shape ShapeInfo
		want  bool
	}{
		{ShapeInfo{Name: "Author", Fields: []string{"Id", "Name", "CreatedAt", "UpdatedAt"}}, true},
		{ShapeInfo{Name: "BlogPost", Fields: []string{"BlogPostId", "Title", "CreatedDate", "ModifiedDate"}}, true},
		{ShapeInfo{Name: "SearchFilter", Fields: []string{"Term", "Limit"}}, false},
		{ShapeInfo{Name: "Tag", Fields: []string{"Label"}, Entity: true}, true},
	}
	for _, tc := range cases {
		if got := c.RegisterShape(tc.shape); got != tc.want {
			t.Errorf("%s - RegisterShape(%s) = %v, want %v", testPrefix, tc.shape.Name, got, tc.want)
		}
	}
	if c.IsValid("SearchFilter") {
		t.Errorf("%s - SearchFilter should not have been registered", testPrefix)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Entities(_ context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}

func TestDiscover_IsolatesFailingSource(t *testing.T) {
	c := newTestCatalog()

	c.Discover(context.Background(),
		&StaticSource{Tag: SourceCollection, Names: []string{"authors"}},
		failingSource{},
		&StaticSource{Tag: SourceManual, Names: []string{"Category"}},
	)

	if !c.IsValid("author") {
		t.Errorf("%s - expected author from first source", testPrefix)
	}
	if !c.IsValid("category") {
		t.Errorf("%s - expected category from source after the failing one", testPrefix)
	}
}

func TestOperationNameSource(t *testing.T) {
	pl := pluralize.New()
	src := &OperationNameSource{
		Identifiers: []string{
			"GetAllAuthorsQuery",
			"CreateBlogPostCommand",
			"GetAuthorByEmailQuery",
			"NotAnOperation",
		},
		Verbs:       DefaultVerbs,
		Singularize: pl.Singularize,
	}

	names, err := src.Entities(context.Background())
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", testPrefix, err)
	}

	want := map[string]bool{"Author": true, "BlogPost": true}
	if len(names) != 3 {
		t.Fatalf("%s - names = %v, want 3 entries", testPrefix, names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("%s - unexpected extracted name %q", testPrefix, n)
		}
	}
}

func TestConcurrentReadsAndInserts(t *testing.T) {
	c := newTestCatalog()
	c.Register("Author")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.CanonicalName("categories")
				c.IsValid("authors")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Register("Tag")
				c.ListNames()
			}
		}()
	}
	wg.Wait()

	if !c.IsValid("tag") || !c.IsValid("category") {
		t.Errorf("%s - expected tag and category after concurrent inserts", testPrefix)
	}
}

func TestObserver_FiresOncePerEntity(t *testing.T) {
	c := newTestCatalog()
	var seen []Entry
	c.SetObserver(func(e Entry) { seen = append(seen, e) })

	c.Register("Author")
	c.Register("Author")
	c.Register("authors")

	if len(seen) != 1 || seen[0].Canonical != "Author" {
		t.Errorf("%s - observer calls = %+v, want one for Author", testPrefix, seen)
	}
}
