package blog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/actionmesh/gateway/pkg/catalog"
	"github.com/actionmesh/gateway/pkg/db"
	"github.com/actionmesh/gateway/pkg/dispatch"
	"github.com/actionmesh/gateway/pkg/operation"
	"github.com/actionmesh/gateway/pkg/pluralize"
)

const testPrefix = "blog:module_test"

// memStore is an in-memory Store for tests.
type memStore struct {
	authors    []db.Author
	posts      []db.BlogPost
	categories []db.Category
	tags       []db.Tag
	nextID     int
}

func (s *memStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *memStore) ListAuthors(_ context.Context) ([]db.Author, error) {
	return s.authors, nil
}

func (s *memStore) GetAuthorByEmail(_ context.Context, email string) (*db.Author, error) {
	for i := range s.authors {
		if strings.EqualFold(s.authors[i].Email, email) {
			return &s.authors[i], nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateAuthor(_ context.Context, name, email string, bio *string) (*db.Author, error) {
	a := db.Author{ID: s.id(), Name: name, Email: email, Bio: bio, Created: time.Now(), Modified: time.Now()}
	s.authors = append(s.authors, a)
	return &a, nil
}

func (s *memStore) ListBlogPosts(_ context.Context) ([]db.BlogPost, error) {
	return s.posts, nil
}

func (s *memStore) CreateBlogPost(_ context.Context, params db.CreateBlogPostParams) (*db.BlogPost, error) {
	p := db.BlogPost{
		ID:         s.id(),
		Title:      params.Title,
		Body:       params.Body,
		AuthorID:   params.AuthorID,
		CategoryID: params.CategoryID,
		Created:    time.Now(),
		Modified:   time.Now(),
	}
	s.posts = append(s.posts, p)
	return &p, nil
}

func (s *memStore) PublishBlogPost(_ context.Context, id string) (*db.BlogPost, error) {
	for i := range s.posts {
		if s.posts[i].ID == id {
			now := time.Now()
			s.posts[i].PublishedAt = &now
			return &s.posts[i], nil
		}
	}
	return nil, nil
}

func (s *memStore) ListCategories(_ context.Context) ([]db.Category, error) {
	return s.categories, nil
}

func (s *memStore) CreateCategory(_ context.Context, name string) (*db.Category, error) {
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Name, name) {
			return &s.categories[i], nil
		}
	}
	c := db.Category{ID: s.id(), Name: name, Created: time.Now()}
	s.categories = append(s.categories, c)
	return &c, nil
}

func (s *memStore) ListTags(_ context.Context) ([]db.Tag, error) {
	return s.tags, nil
}

func (s *memStore) CreateTag(_ context.Context, name string) (*db.Tag, error) {
	for i := range s.tags {
		if strings.EqualFold(s.tags[i].Name, name) {
			return &s.tags[i], nil
		}
	}
	tg := db.Tag{ID: s.id(), Name: name, Created: time.Now()}
	s.tags = append(s.tags, tg)
	return &tg, nil
}

func (s *memStore) DeleteTag(_ context.Context, name string) (bool, error) {
	for i := range s.tags {
		if strings.EqualFold(s.tags[i].Name, name) {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func testDispatcher(t *testing.T, store Store) *dispatch.Dispatcher {
	t.Helper()

	cat := catalog.New(pluralize.New())
	for _, e := range []string{"Author", "BlogPost", "Category", "Tag"} {
		cat.Register(e)
	}

	reg := operation.NewRegistry(cat, New(store))
	if err := reg.Build(); err != nil {
		t.Fatalf("%s - Build: %v", testPrefix, err)
	}
	return dispatch.NewDispatcher(reg, cat, nil)
}

func seedStore() *memStore {
	store := &memStore{}
	store.CreateAuthor(context.Background(), "Jane Doe", "jane@example.com", nil)
	return store
}

func TestGetAllAuthors(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{ID: "1", Action: "getAllAuthors"})
	if !res.Success {
		t.Fatalf("%s - dispatch failed: %+v", testPrefix, res.Error)
	}
	authors := res.Data.([]db.Author)
	if len(authors) != 1 || authors[0].Email != "jane@example.com" {
		t.Errorf("%s - authors = %+v", testPrefix, authors)
	}
}

func TestGetAuthorByEmail(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:          "2",
		Action:      "getAuthorByEmail",
		RouteParams: map[string]string{"email": "jane@example.com"},
	})
	if !res.Success {
		t.Fatalf("%s - dispatch failed: %+v", testPrefix, res.Error)
	}
	author := res.Data.(*db.Author)
	if author.Name != "Jane Doe" {
		t.Errorf("%s - author = %+v", testPrefix, author)
	}
}

func TestGetAuthorByEmail_PayloadInsteadOfRoute(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "3",
		Action:  "getAuthorByEmail",
		Payload: []byte(`{"Email":"jane@example.com"}`),
	})
	if !res.Success {
		t.Fatalf("%s - dispatch failed: %+v", testPrefix, res.Error)
	}
}

func TestGetAuthorByEmail_Unknown(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:          "4",
		Action:      "getAuthorByEmail",
		RouteParams: map[string]string{"email": "nobody@example.com"},
	})
	if res.Success {
		t.Fatalf("%s - expected failure for unknown author", testPrefix)
	}
	if res.Error.Code != dispatch.CodeDispatchError {
		t.Errorf("%s - error code = %s", testPrefix, res.Error.Code)
	}
}

func TestCreateAndPublishBlogPost(t *testing.T) {
	store := seedStore()
	d := testDispatcher(t, store)

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "5",
		Action:  "createBlogPost",
		Payload: []byte(`{"title":"Hello","body":"World","authorId":"id-1"}`),
	})
	if !res.Success {
		t.Fatalf("%s - create failed: %+v", testPrefix, res.Error)
	}
	post := res.Data.(*db.BlogPost)
	if post.Title != "Hello" || post.PublishedAt != nil {
		t.Errorf("%s - post = %+v", testPrefix, post)
	}

	res = d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "6",
		Action:  "publishBlogPost",
		Payload: []byte(fmt.Sprintf(`{"id":%q}`, post.ID)),
	})
	if !res.Success {
		t.Fatalf("%s - publish failed: %+v", testPrefix, res.Error)
	}
	published := res.Data.(*db.BlogPost)
	if published.PublishedAt == nil {
		t.Errorf("%s - expected published timestamp", testPrefix)
	}
}

func TestCreateBlogPost_MissingTitle(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "7",
		Action:  "createBlogPost",
		Payload: []byte(`{"authorId":"id-1"}`),
	})
	if res.Success {
		t.Fatalf("%s - expected failure for missing title", testPrefix)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "8",
		Action:  "createCategory",
		Payload: []byte(`{"name":"go"}`),
	})
	if !res.Success {
		t.Fatalf("%s - create category failed: %+v", testPrefix, res.Error)
	}

	// Duplicate create is idempotent.
	res = d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "9",
		Action:  "createCategory",
		Payload: []byte(`{"name":"go"}`),
	})
	if !res.Success {
		t.Fatalf("%s - duplicate create failed: %+v", testPrefix, res.Error)
	}

	res = d.Dispatch(context.Background(), &dispatch.Request{ID: "10", Action: "getallcategories"})
	if !res.Success {
		t.Fatalf("%s - list failed: %+v", testPrefix, res.Error)
	}
	categories := res.Data.([]db.Category)
	if len(categories) != 1 {
		t.Errorf("%s - expected 1 category, got %d", testPrefix, len(categories))
	}
}

func TestTagLifecycle(t *testing.T) {
	d := testDispatcher(t, seedStore())

	res := d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "11",
		Action:  "createTag",
		Payload: []byte(`{"name":"concurrency"}`),
	})
	if !res.Success {
		t.Fatalf("%s - create tag failed: %+v", testPrefix, res.Error)
	}

	res = d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "12",
		Action:  "deleteTag",
		Payload: []byte(`{"name":"concurrency"}`),
	})
	if !res.Success {
		t.Fatalf("%s - delete tag failed: %+v", testPrefix, res.Error)
	}

	res = d.Dispatch(context.Background(), &dispatch.Request{
		ID:      "13",
		Action:  "deleteTag",
		Payload: []byte(`{"name":"concurrency"}`),
	})
	if res.Success {
		t.Fatalf("%s - expected failure deleting missing tag", testPrefix)
	}
}

func TestShapesRegisterAsEntities(t *testing.T) {
	cat := catalog.New(pluralize.New())
	mod := New(&memStore{})

	for _, shape := range mod.Shapes() {
		if !cat.RegisterShape(shape) {
			t.Errorf("%s - shape %s rejected", testPrefix, shape.Name)
		}
	}
	if cat.Len() != 4 {
		t.Errorf("%s - expected 4 entities, got %d", testPrefix, cat.Len())
	}
	for _, name := range []string{"Author", "BlogPost", "Category", "Tag"} {
		if !cat.IsValid(name) {
			t.Errorf("%s - %s should be known after shape discovery", testPrefix, name)
		}
	}
}

func TestOperationMetadataCoversAllDescriptors(t *testing.T) {
	mod := New(&memStore{})
	ops := mod.Operations()
	if len(ops) != 11 {
		t.Fatalf("%s - expected 11 operations, got %d", testPrefix, len(ops))
	}
	for _, op := range ops {
		if op.Name == "" {
			t.Errorf("%s - descriptor without name", testPrefix)
		}
		if op.Handle == nil {
			t.Errorf("%s - %s has no handler", testPrefix, op.Name)
		}
		if op.NewInput == nil && op.Bind == nil {
			t.Errorf("%s - %s has neither NewInput nor Bind", testPrefix, op.Name)
		}
	}
}
