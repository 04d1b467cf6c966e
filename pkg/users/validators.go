package users

// CreateUserPayload is the body of POST /admin/api/users.
type CreateUserPayload struct {
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
	IsAdmin  bool   `json:"is_admin"`
}

// ChangePasswordPayload is the body of PATCH /api/user.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required,max=72"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit  int    `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=50"`
	Offset int    `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search string `query:"q" json:"q,omitempty" mod:"trim" validate:"max=254"`
}
