package payload

import "strings"

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Trim() {
	r.Email = strings.TrimSpace(r.Email)
}

// ResetPasswordRequest completes a reset. The token comes from the URL path.
type ResetPasswordRequest struct {
	Password        string `json:"password"        validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"    validate:"required"`
	NewPassword        string `json:"newPassword"        validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}
