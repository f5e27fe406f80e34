package auth

const (
	AreaStaff  = "staff"
	AreaMember = "member"
)

// LoginPayload represents the login request body. Username also accepts the
// account's email address.
type LoginPayload struct {
	Username string `json:"username" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
	Area     string `json:"area" validate:"omitempty,oneof=staff member"`
	Next     string `json:"next" validate:"max=2048"`
}

type LoginHintQuery struct {
	Next string `query:"next" validate:"max=2048"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID          int     `json:"id"`
	Username    string  `json:"username"`
	Email       *string `json:"email,omitempty"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	StaffID     int     `json:"staff_id,omitempty"`
	MemberID    int     `json:"member_id,omitempty"`
	Next        string  `json:"next,omitempty"`
}

// LoginHintResponse tells a client which login form to show and where to go
// once signed in.
type LoginHintResponse struct {
	Area      string `json:"area"`
	LoginPath string `json:"login_path"`
	Next      string `json:"next"`
}
