package staff

type ListStaffQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
}

type PromotePayload struct {
	UserID   int    `json:"user_id" validate:"required,min=1"`
	Name     string `json:"name" mod:"trim" validate:"max=100"`
	Surname  string `json:"surname" mod:"trim" validate:"max=100"`
	Position string `json:"position" mod:"trim" validate:"required,max=100"`
}

type UpdateStaffPayload struct {
	Name     *string `json:"name,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Surname  *string `json:"surname,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Position *string `json:"position,omitempty" mod:"trim" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active,omitempty"`
}
