package loans

type ListLoansQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Status   *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=pending returned overdue"`
	MemberID *int    `query:"member_id" json:"member_id,omitempty" validate:"omitempty,min=1"`
}

type IssueLoanPayload struct {
	MemberID int     `json:"member_id" validate:"required,min=1"`
	CopyID   int     `json:"copy_id" validate:"required,min=1"`
	DueAt    *string `json:"due_at,omitempty" validate:"omitempty,date"`
	Notes    *string `json:"notes,omitempty" mod:"trim" validate:"omitempty,max=500"`
}
