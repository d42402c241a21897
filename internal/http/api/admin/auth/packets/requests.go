package packets

// body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NewPassword requires CurrentPassword.
type UpdateCurrentProfileRequest struct {
	FullName        *string `json:"full_name"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" binding:"omitempty,min=8"`
}
