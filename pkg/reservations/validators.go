package reservations

type ListReservationsQuery struct {
	Limit    int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset   int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search   *string `query:"q" json:"q,omitempty" mod:"trim" validate:"omitempty,max=100"`
	Status   *string `query:"status" json:"status,omitempty" validate:"omitempty,oneof=pending notified cancelled"`
	MemberID *int    `query:"member_id" json:"member_id,omitempty" validate:"omitempty,min=1"`
}
