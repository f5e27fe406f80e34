package members

type ListMembersQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
	IsActive *bool   `query:"is_active" json:"is_active,omitempty"`
}

type CreateMemberPayload struct {
	Name           string  `json:"name" mod:"trim" validate:"required,max=100"`
	Surname        string  `json:"surname" mod:"trim" validate:"required,max=100"`
	Identification string  `json:"identification" mod:"trim" validate:"required,max=20"`
	Email          string  `json:"email" mod:"trim,lcase" validate:"required,email,max=254"`
	Phone          *string `json:"phone,omitempty" mod:"trim" validate:"omitempty,max=20"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

type UpdateMemberPayload struct {
	Name           *string `json:"name,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Surname        *string `json:"surname,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Identification *string `json:"identification,omitempty" mod:"trim" validate:"omitempty,max=20"`
	Email          *string `json:"email,omitempty" mod:"trim,lcase" validate:"omitempty,email,max=254"`
	Phone          *string `json:"phone,omitempty" mod:"trim" validate:"omitempty,max=20"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

type LinkUserPayload struct {
	UserID int `json:"user_id" validate:"required,min=1"`
}

// RegisterPayload is the public sign up form.
type RegisterPayload struct {
	Username       string  `json:"username" mod:"trim" validate:"required,min=3,max=150"`
	Password       string  `json:"password" validate:"required,min=8"`
	Email          string  `json:"email" mod:"trim,lcase" validate:"required,email,max=254"`
	Name           string  `json:"name" mod:"trim" validate:"required,max=100"`
	Surname        string  `json:"surname" mod:"trim" validate:"required,max=100"`
	Identification string  `json:"identification" mod:"trim" validate:"required,max=20"`
	Phone          *string `json:"phone,omitempty" mod:"trim" validate:"omitempty,max=20"`
}
