package authors

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
}

type CreateAuthorPayload struct {
	Name        string  `json:"name" mod:"trim" validate:"required,max=100"`
	Surname     string  `json:"surname" mod:"trim" validate:"required,max=100"`
	Nationality *string `json:"nationality,omitempty" mod:"trim" validate:"omitempty,max=100"`
	BirthDate   *string `json:"birth_date,omitempty" validate:"omitempty,date"`
	Bio         *string `json:"bio,omitempty"`
}

type UpdateAuthorPayload struct {
	Name        *string `json:"name,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Surname     *string `json:"surname,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Nationality *string `json:"nationality,omitempty" mod:"trim" validate:"omitempty,max=100"`
	BirthDate   *string `json:"birth_date,omitempty" validate:"omitempty,date"`
	Bio         *string `json:"bio,omitempty"`
}
