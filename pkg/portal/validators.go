package portal

type SearchBooksQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Title  *string `query:"title" json:"title,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Author *string `query:"author" json:"author,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Genre  *string `query:"genre" json:"genre,omitempty" mod:"trim" validate:"omitempty,max=50"`
}

type ListLoansQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=pending returned overdue"`
}

type ListReservationsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=pending notified cancelled"`
}
