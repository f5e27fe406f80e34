package users

// CreateUserPayload represents the request body for creating a user.
type CreateUserPayload struct {
	Username  string  `json:"username" validate:"required,min=3,max=150"`
	Email     *string `json:"email" mod:"trim,lcase" validate:"omitempty,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"first_name" mod:"trim" validate:"max=150"`
	LastName  string  `json:"last_name" mod:"trim" validate:"max=150"`
	IsAdmin   bool    `json:"is_admin"`
}

// UpdateUserPayload represents the request body for updating a user.
type UpdateUserPayload struct {
	Email     *string `json:"email" mod:"trim,lcase" validate:"omitempty,email"`
	FirstName *string `json:"first_name" mod:"trim" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" mod:"trim" validate:"omitempty,max=150"`
	IsAdmin   *bool   `json:"is_admin"`
	IsActive  *bool   `json:"is_active"`
}

// ResetPasswordPayload represents the request body for resetting a password.
type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password"` // Required when resetting your own password
	NewPassword     string  `json:"new_password" validate:"required,min=8"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit  int    `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset int    `query:"offset" validate:"min=0"`
	Search string `query:"q" mod:"trim"`
}
