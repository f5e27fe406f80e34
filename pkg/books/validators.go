package books

type ListBooksQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
	AuthorID *int    `query:"author_id" json:"author_id,omitempty" validate:"omitempty,min=1"`
}

type CreateBookPayload struct {
	Title       string  `json:"title" mod:"trim" validate:"required,max=200"`
	AuthorID    int     `json:"author_id" validate:"required,min=1"`
	ISBN        *string `json:"isbn,omitempty" mod:"trim" validate:"omitempty,isbn"`
	Publisher   *string `json:"publisher,omitempty" mod:"trim" validate:"omitempty,max=100"`
	PublishedAt *string `json:"published_at,omitempty" validate:"omitempty,date"`
	Pages       *int    `json:"pages,omitempty" validate:"omitempty,min=1"`
	Genre       *string `json:"genre,omitempty" mod:"trim" validate:"omitempty,max=100"`
	// Copies is how many copies to register along with the book.
	Copies int `json:"copies" default:"1" validate:"min=0,max=500"`
}

type UpdateBookPayload struct {
	Title       *string `json:"title,omitempty" mod:"trim" validate:"omitempty,max=200"`
	AuthorID    *int    `json:"author_id,omitempty" validate:"omitempty,min=1"`
	ISBN        *string `json:"isbn,omitempty" mod:"trim" validate:"omitempty,isbn"`
	Publisher   *string `json:"publisher,omitempty" mod:"trim" validate:"omitempty,max=100"`
	PublishedAt *string `json:"published_at,omitempty" validate:"omitempty,date"`
	Pages       *int    `json:"pages,omitempty" validate:"omitempty,min=1"`
	Genre       *string `json:"genre,omitempty" mod:"trim" validate:"omitempty,max=100"`
}

type AddCopiesPayload struct {
	Count    int     `json:"count" default:"1" validate:"min=1,max=500"`
	Location *string `json:"location,omitempty" mod:"trim" validate:"omitempty,max=100"`
}

type UpdateCopyPayload struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,copy_status"`
	Location *string `json:"location,omitempty" mod:"trim" validate:"omitempty,max=100"`
}
