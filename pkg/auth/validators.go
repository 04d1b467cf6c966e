package auth

// LoginPayload represents the login request body.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshPayload represents the refresh request body.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID      int    `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User UserResponse `json:"user"`
	TokenPair
}

// RefreshResponse is returned by a successful refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}
