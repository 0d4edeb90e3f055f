package blog

import (
	"context"
	"fmt"

	"github.com/actionmesh/gateway/pkg/binder"
	"github.com/actionmesh/gateway/pkg/catalog"
	"github.com/actionmesh/gateway/pkg/db"
	"github.com/actionmesh/gateway/pkg/operation"
)

// Module exposes the blog operations as an operation source.
type Module struct {
	store Store
}

// New creates the blog module over the given store.
func New(store Store) *Module {
	return &Module{store: store}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "blog" }

// Shapes lists the module's domain model shapes for catalog discovery.
// Category and Tag carry the explicit entity marker because they lack
// the modified timestamp the heuristic looks for.
func (m *Module) Shapes() []catalog.ShapeInfo {
	return []catalog.ShapeInfo{
		{Name: "Author", Fields: []string{"id", "name", "email", "bio", "created", "modified"}},
		{Name: "BlogPost", Fields: []string{"id", "title", "body", "authorId", "categoryId", "publishedAt", "created", "modified"}},
		{Name: "Category", Fields: []string{"id", "name", "created"}, Entity: true},
		{Name: "Tag", Fields: []string{"id", "name", "created"}, Entity: true},
	}
}

// GetAuthorByEmailInput is an immutable value shape: instances are
// built once through the field-merge builder and never mutated.
type GetAuthorByEmailInput struct {
	Email string `json:"email"`
}

// CreateAuthorInput carries the fields for a new author.
type CreateAuthorInput struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Bio   *string `json:"bio,omitempty"`
}

// CreateBlogPostInput carries the fields for a new blog post.
type CreateBlogPostInput struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	AuthorID   string  `json:"authorId"`
	CategoryID *string `json:"categoryId,omitempty"`
}

// PublishBlogPostInput names the post to publish.
type PublishBlogPostInput struct {
	ID string `json:"id"`
}

// NamedInput is the shared input of the category and tag operations.
type NamedInput struct {
	Name string `json:"name"`
}

// Operations returns the module's operation descriptors.
func (m *Module) Operations() []operation.Descriptor {
	emailShape := operation.Shape{
		Name:      "GetAuthorByEmailInput",
		Immutable: true,
		Fields: []operation.Field{
			{Name: "email", Type: operation.FieldString, Required: true},
		},
	}

	nameFields := []operation.Field{
		{Name: "name", Type: operation.FieldString, Required: true},
	}

	return []operation.Descriptor{
		{
			Name:     "GetAllAuthorsQuery",
			Input:    operation.Shape{Name: "GetAllAuthorsInput"},
			Output:   &operation.Shape{Name: "AuthorList"},
			NewInput: func() interface{} { return &struct{}{} },
			Handle: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return m.store.ListAuthors(ctx)
			},
		},
		{
			Name:   "GetAuthorByEmailQuery",
			Input:  emailShape,
			Output: &operation.Shape{Name: "Author"},
			Bind: binder.Fields(emailShape, func(values map[string]interface{}) (interface{}, error) {
				email := binder.StringValue(values, "email")
				if email == "" {
					return nil, fmt.Errorf("email is required")
				}
				return GetAuthorByEmailInput{Email: email}, nil
			}),
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(GetAuthorByEmailInput)
				author, err := m.store.GetAuthorByEmail(ctx, in.Email)
				if err != nil {
					return nil, err
				}
				if author == nil {
					return nil, fmt.Errorf("author with email %q not found", in.Email)
				}
				return author, nil
			},
		},
		{
			Name: "CreateAuthorCommand",
			Input: operation.Shape{
				Name: "CreateAuthorInput",
				Fields: []operation.Field{
					{Name: "name", Type: operation.FieldString, Required: true},
					{Name: "email", Type: operation.FieldString, Required: true},
					{Name: "bio", Type: operation.FieldString},
				},
			},
			Output:   &operation.Shape{Name: "Author"},
			NewInput: func() interface{} { return &CreateAuthorInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*CreateAuthorInput)
				if in.Name == "" || in.Email == "" {
					return nil, fmt.Errorf("name and email are required")
				}
				return m.store.CreateAuthor(ctx, in.Name, in.Email, in.Bio)
			},
		},
		{
			Name:     "GetAllBlogPostsQuery",
			Input:    operation.Shape{Name: "GetAllBlogPostsInput"},
			Output:   &operation.Shape{Name: "BlogPostList"},
			NewInput: func() interface{} { return &struct{}{} },
			Handle: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return m.store.ListBlogPosts(ctx)
			},
		},
		{
			Name: "CreateBlogPostCommand",
			Input: operation.Shape{
				Name: "CreateBlogPostInput",
				Fields: []operation.Field{
					{Name: "title", Type: operation.FieldString, Required: true},
					{Name: "body", Type: operation.FieldString},
					{Name: "authorId", Type: operation.FieldString, Required: true},
					{Name: "categoryId", Type: operation.FieldString},
				},
			},
			Output:   &operation.Shape{Name: "BlogPost"},
			NewInput: func() interface{} { return &CreateBlogPostInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*CreateBlogPostInput)
				if in.Title == "" {
					return nil, fmt.Errorf("title is required")
				}
				if in.AuthorID == "" {
					return nil, fmt.Errorf("authorId is required")
				}
				return m.store.CreateBlogPost(ctx, db.CreateBlogPostParams{
					Title:      in.Title,
					Body:       in.Body,
					AuthorID:   in.AuthorID,
					CategoryID: in.CategoryID,
				})
			},
		},
		{
			Name: "PublishBlogPostCommand",
			Input: operation.Shape{
				Name: "PublishBlogPostInput",
				Fields: []operation.Field{
					{Name: "id", Type: operation.FieldString, Required: true},
				},
			},
			Output:   &operation.Shape{Name: "BlogPost"},
			NewInput: func() interface{} { return &PublishBlogPostInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*PublishBlogPostInput)
				if in.ID == "" {
					return nil, fmt.Errorf("id is required")
				}
				post, err := m.store.PublishBlogPost(ctx, in.ID)
				if err != nil {
					return nil, err
				}
				if post == nil {
					return nil, fmt.Errorf("blog post %q not found", in.ID)
				}
				return post, nil
			},
		},
		{
			Name:     "GetAllCategoriesQuery",
			Input:    operation.Shape{Name: "GetAllCategoriesInput"},
			Output:   &operation.Shape{Name: "CategoryList"},
			NewInput: func() interface{} { return &struct{}{} },
			Handle: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return m.store.ListCategories(ctx)
			},
		},
		{
			Name:     "CreateCategoryCommand",
			Input:    operation.Shape{Name: "CreateCategoryInput", Fields: nameFields},
			Output:   &operation.Shape{Name: "Category"},
			NewInput: func() interface{} { return &NamedInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*NamedInput)
				if in.Name == "" {
					return nil, fmt.Errorf("name is required")
				}
				return m.store.CreateCategory(ctx, in.Name)
			},
		},
		{
			Name:     "GetAllTagsQuery",
			Input:    operation.Shape{Name: "GetAllTagsInput"},
			Output:   &operation.Shape{Name: "TagList"},
			NewInput: func() interface{} { return &struct{}{} },
			Handle: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return m.store.ListTags(ctx)
			},
		},
		{
			Name:     "CreateTagCommand",
			Input:    operation.Shape{Name: "CreateTagInput", Fields: nameFields},
			Output:   &operation.Shape{Name: "Tag"},
			NewInput: func() interface{} { return &NamedInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*NamedInput)
				if in.Name == "" {
					return nil, fmt.Errorf("name is required")
				}
				return m.store.CreateTag(ctx, in.Name)
			},
		},
		{
			Name:     "DeleteTagCommand",
			Input:    operation.Shape{Name: "DeleteTagInput", Fields: nameFields},
			NewInput: func() interface{} { return &NamedInput{} },
			Handle: func(ctx context.Context, input interface{}) (interface{}, error) {
				in := input.(*NamedInput)
				if in.Name == "" {
					return nil, fmt.Errorf("name is required")
				}
				deleted, err := m.store.DeleteTag(ctx, in.Name)
				if err != nil {
					return nil, err
				}
				if !deleted {
					return nil, fmt.Errorf("tag %q not found", in.Name)
				}
				return map[string]interface{}{"deleted": true, "name": in.Name}, nil
			},
		},
	}
}
