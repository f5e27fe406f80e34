package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID          int        `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Name        string     `bun:",nullzero" json:"name"`
	Surname     string     `bun:",nullzero" json:"surname"`
	Nationality *string    `json:"nationality,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
}

func (a *Author) FullName() string {
	return a.Name + " " + a.Surname
}
