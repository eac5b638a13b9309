package models

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "sessiongate/pkg/domain-errors"
)

// maxPasswordBytes is the bcrypt input limit; longer inputs are rejected
// rather than silently truncated.
const maxPasswordBytes = 72

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(r.Email)
}

// Follows validation order: Required -> Size -> Syntax.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "Missing email")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "Missing password")
	}

	if !govalidator.StringLength(r.Email, "3", "255") {
		return dErrors.New(dErrors.CodeValidation, "Invalid email")
	}
	if len(r.Password) > maxPasswordBytes {
		return dErrors.New(dErrors.CodeValidation, "Password too long")
	}

	// Basic credentials carry exactly one colon, so neither half may hold one.
	if strings.Contains(r.Email, ":") || !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "Invalid email")
	}
	if strings.Contains(r.Password, ":") {
		return dErrors.New(dErrors.CodeValidation, "Invalid password")
	}
	return nil
}
