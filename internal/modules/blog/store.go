// Package blog is the gateway's built-in feature module: blog content
// operations exposed as explicit operation descriptors.
package blog

import (
	"context"

	"github.com/actionmesh/gateway/pkg/db"
)

// Store is the persistence surface the blog module operates against.
// *db.Repository satisfies it; tests use an in-memory implementation.
type Store interface {
	ListAuthors(ctx context.Context) ([]db.Author, error)
	GetAuthorByEmail(ctx context.Context, email string) (*db.Author, error)
	CreateAuthor(ctx context.Context, name, email string, bio *string) (*db.Author, error)

	ListBlogPosts(ctx context.Context) ([]db.BlogPost, error)
	CreateBlogPost(ctx context.Context, params db.CreateBlogPostParams) (*db.BlogPost, error)
	PublishBlogPost(ctx context.Context, id string) (*db.BlogPost, error)

	ListCategories(ctx context.Context) ([]db.Category, error)
	CreateCategory(ctx context.Context, name string) (*db.Category, error)

	ListTags(ctx context.Context) ([]db.Tag, error)
	CreateTag(ctx context.Context, name string) (*db.Tag, error)
	DeleteTag(ctx context.Context, name string) (bool, error)
}
