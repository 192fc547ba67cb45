// internal/posts/repository.go
//
// Post queries against a borrowed tenant session.
//
// Context
// -------
// Every function takes the tenant.Session the accessor attached to the
// request.  The session's pool is already scoped to the tenant schema, so
// table names stay unqualified and one tenant can never read another's
// rows.  Functions never close the session.
//
// Notes
// -----
//   - Queries use `?` and are rebound to the session's driver.
//   - Lists are newest first.
package posts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/tenant"
)

// ErrNotFound is returned for an unknown post id.
var ErrNotFound = errors.New("post not found")

const columns = `id, title, content, published, created_at, updated_at`

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Create inserts a post.
func Create(ctx context.Context, s tenant.Session, in CreateInput) (*Post, error) {
	ts := now()
	p := &Post{
		ID:        uuid.New(),
		Title:     in.Title,
		Content:   in.Content,
		Published: in.Published,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err := s.ExecContext(ctx, s.Rebind(`INSERT INTO posts (`+columns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.Title, p.Content, p.Published, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// All returns every post.
func All(ctx context.Context, s tenant.Session) ([]Post, error) {
	out := []Post{}
	err := s.SelectContext(ctx, &out, `SELECT `+columns+` FROM posts ORDER BY created_at DESC, id`)
	return out, err
}

// Published returns published posts only.
func Published(ctx context.Context, s tenant.Session) ([]Post, error) {
	out := []Post{}
	err := s.SelectContext(ctx, &out,
		s.Rebind(`SELECT `+columns+` FROM posts WHERE published = ? ORDER BY created_at DESC, id`), true)
	return out, err
}

// ByID fetches one post.
func ByID(ctx context.Context, s tenant.Session, id uuid.UUID) (*Post, error) {
	var p Post
	err := s.GetContext(ctx, &p, s.Rebind(`SELECT `+columns+` FROM posts WHERE id = ?`), id)
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies in to the post inside one transaction and returns the
// result.
func Update(ctx context.Context, s tenant.Session, id uuid.UUID, in UpdateInput) (*Post, error) {
	tx, err := s.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var p Post
	err = tx.GetContext(ctx, &p, tx.Rebind(`SELECT `+columns+` FROM posts WHERE id = ? FOR UPDATE`), id)
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	in.apply(&p)
	p.UpdatedAt = now()
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE posts SET title = ?, content = ?, published = ?, updated_at = ? WHERE id = ?`),
		p.Title, p.Content, p.Published, p.UpdatedAt, p.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a post.
func Delete(ctx context.Context, s tenant.Session, id uuid.UUID) error {
	res, err := s.ExecContext(ctx, s.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
