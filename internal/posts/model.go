package posts

import (
	"time"

	"github.com/google/uuid"
)

// Post mirrors one row of the per-tenant `posts` table.
type Post struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Title     string    `db:"title"      json:"title"`
	Content   string    `db:"content"    json:"content"`
	Published bool      `db:"published"  json:"published"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateInput is the body of POST /posts.
type CreateInput struct {
	Title     string `json:"title"     validate:"required,max=255"`
	Content   string `json:"content"   validate:"required"`
	Published bool   `json:"published"`
}

// UpdateInput is the body of PATCH /posts/{id}.  Nil fields are left as
// they are.
type UpdateInput struct {
	Title     *string `json:"title"     validate:"omitempty,min=1,max=255"`
	Content   *string `json:"content"   validate:"omitempty,min=1"`
	Published *bool   `json:"published"`
}

func (in UpdateInput) apply(p *Post) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
}
