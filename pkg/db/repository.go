package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for the gateway's feature modules
// and audit log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// =========================================================================
// AUTHOR OPERATIONS
// =========================================================================

// ListAuthors returns all authors ordered by name.
func (r *Repository) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, bio, created, modified
		 FROM authors
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListAuthors failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.Created, &a.Modified); err != nil {
			return nil, fmt.Errorf("%s - ListAuthors scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAuthorByEmail finds an author by email. Returns nil when no author
// has that email.
func (r *Repository) GetAuthorByEmail(ctx context.Context, email string) (*Author, error) {
	slog.Debug(fmt.Sprintf("%s - GetAuthorByEmail email=%s", repoLogPrefix, email))

	var a Author
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, bio, created, modified
		 FROM authors
		 WHERE lower(email) = lower($1)
		 LIMIT 1`, email).Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.Created, &a.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - GetAuthorByEmail failed: %w", repoLogPrefix, err)
	}
	return &a, nil
}

// CreateAuthor inserts an author; a duplicate email updates the name and bio.
func (r *Repository) CreateAuthor(ctx context.Context, name, email string, bio *string) (*Author, error) {
	slog.Info(fmt.Sprintf("%s - CreateAuthor email=%s", repoLogPrefix, email))

	now := time.Now().UTC()

	var a Author
	err := r.pool.QueryRow(ctx,
		`INSERT INTO authors (name, email, bio, created, modified)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (email) DO UPDATE SET
		   name = $1,
		   bio = COALESCE($3, authors.bio),
		   modified = $4
		 RETURNING id, name, email, bio, created, modified`,
		name, email, bio, now).Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.Created, &a.Modified)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateAuthor failed: %w", repoLogPrefix, err)
	}
	return &a, nil
}

// =========================================================================
// BLOG POST OPERATIONS
// =========================================================================

// ListBlogPosts returns all blog posts, newest first.
func (r *Repository) ListBlogPosts(ctx context.Context) ([]BlogPost, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, body, author_id, category_id, published_at, created, modified
		 FROM blog_posts
		 ORDER BY created DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListBlogPosts failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []BlogPost
	for rows.Next() {
		var p BlogPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &p.CategoryID, &p.PublishedAt, &p.Created, &p.Modified); err != nil {
			return nil, fmt.Errorf("%s - ListBlogPosts scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateBlogPostParams holds parameters for CreateBlogPost.
type CreateBlogPostParams struct {
	Title      string
	Body       string
	AuthorID   string
	CategoryID *string
}

// CreateBlogPost inserts a new blog post.
func (r *Repository) CreateBlogPost(ctx context.Context, params CreateBlogPostParams) (*BlogPost, error) {
	slog.Info(fmt.Sprintf("%s - CreateBlogPost title=%s author=%s", repoLogPrefix, params.Title, params.AuthorID))

	now := time.Now().UTC()

	var p BlogPost
	err := r.pool.QueryRow(ctx,
		`INSERT INTO blog_posts (title, body, author_id, category_id, created, modified)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id, title, body, author_id, category_id, published_at, created, modified`,
		params.Title, params.Body, params.AuthorID, params.CategoryID, now).
		Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &p.CategoryID, &p.PublishedAt, &p.Created, &p.Modified)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateBlogPost failed: %w", repoLogPrefix, err)
	}
	return &p, nil
}

// PublishBlogPost stamps published_at on a post. Returns nil when the
// post does not exist.
func (r *Repository) PublishBlogPost(ctx context.Context, id string) (*BlogPost, error) {
	now := time.Now().UTC()

	var p BlogPost
	err := r.pool.QueryRow(ctx,
		`UPDATE blog_posts
		 SET published_at = COALESCE(published_at, $2), modified = $2
		 WHERE id = $1
		 RETURNING id, title, body, author_id, category_id, published_at, created, modified`,
		id, now).
		Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &p.CategoryID, &p.PublishedAt, &p.Created, &p.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - PublishBlogPost failed: %w", repoLogPrefix, err)
	}
	return &p, nil
}

// =========================================================================
// CATEGORY AND TAG OPERATIONS
// =========================================================================

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	return r.listNamed(ctx, "categories")
}

// CreateCategory inserts a category; duplicate names are idempotent.
func (r *Repository) CreateCategory(ctx context.Context, name string) (*Category, error) {
	return r.upsertNamed(ctx, "categories", name)
}

// ListTags returns all tags ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := r.listNamed(ctx, "tags")
	if err != nil {
		return nil, err
	}
	out := make([]Tag, len(rows))
	for i, c := range rows {
		out[i] = Tag(c)
	}
	return out, nil
}

// CreateTag inserts a tag; duplicate names are idempotent.
func (r *Repository) CreateTag(ctx context.Context, name string) (*Tag, error) {
	c, err := r.upsertNamed(ctx, "tags", name)
	if err != nil {
		return nil, err
	}
	tag := Tag(*c)
	return &tag, nil
}

// DeleteTag removes a tag by name. Returns true when a row was deleted.
func (r *Repository) DeleteTag(ctx context.Context, name string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE lower(name) = lower($1)`, name)
	if err != nil {
		return false, fmt.Errorf("%s - DeleteTag failed: %w", repoLogPrefix, err)
	}
	return ct.RowsAffected() > 0, nil
}

// listNamed queries an (id, name, created) table. The table name is one
// of the fixed identifiers above, never caller input.
func (r *Repository) listNamed(ctx context.Context, table string) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, name, created FROM %s ORDER BY name`, table))
	if err != nil {
		return nil, fmt.Errorf("%s - list %s failed: %w", repoLogPrefix, table, err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Created); err != nil {
			return nil, fmt.Errorf("%s - list %s scan failed: %w", repoLogPrefix, table, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) upsertNamed(ctx context.Context, table, name string) (*Category, error) {
	now := time.Now().UTC()

	var c Category
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, created)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created`, table),
		name, now).Scan(&c.ID, &c.Name, &c.Created)
	if err != nil {
		return nil, fmt.Errorf("%s - upsert %s failed: %w", repoLogPrefix, table, err)
	}
	return &c, nil
}

// =========================================================================
// DISCOVERY AND AUDIT
// =========================================================================

// CollectionNames returns the table names of the public schema, used as
// a catalog discovery source. The dispatch_log audit table is excluded.
func (r *Repository) CollectionNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_schema = 'public'
		   AND table_type = 'BASE TABLE'
		   AND table_name <> 'dispatch_log'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("%s - CollectionNames failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s - CollectionNames scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// LogDispatch appends one dispatch outcome to the audit table.
func (r *Repository) LogDispatch(ctx context.Context, rec *DispatchRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO dispatch_log (request_id, action, operation, entity, verb, kind, success, error_code, duration_ms, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.RequestID, rec.Action, rec.Operation, rec.Entity, rec.Verb, rec.Kind,
		rec.Success, rec.ErrorCode, rec.DurationMS, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s - LogDispatch failed: %w", repoLogPrefix, err)
	}
	return nil
}
