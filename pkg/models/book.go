package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int        `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Title       string     `bun:",nullzero" json:"title"`
	AuthorID    int        `bun:",nullzero" json:"author_id"`
	ISBN        *string    `bun:"isbn" json:"isbn,omitempty"`
	Publisher   *string    `json:"publisher,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Pages       *int       `json:"pages,omitempty"`
	Genre       *string    `json:"genre,omitempty"`

	// Relations
	Author *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Copies []*Copy `bun:"rel:has-many,join:id=book_id" json:"copies,omitempty"`

	// Filled by search queries.
	AvailableCopies int `bun:",scanonly" json:"available_copies"`
	TotalCopies     int `bun:",scanonly" json:"total_copies"`
}
