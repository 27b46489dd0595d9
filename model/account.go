package model

import (
	"errors"
	"regexp"
	"strings"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrRoleRequired     = errors.New("please select a role")
	ErrFullNameRequired = errors.New("please enter your full name")
	ErrEmailRequired    = errors.New("please enter your email")
	ErrInvalidEmail     = errors.New("please enter a valid email")
	ErrPasswordRequired = errors.New("please enter a password")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Account is a registered doctor or pharmacist. The same email may be
// registered once per role.
type Account struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordSalt string `json:"passwordSalt,omitempty"`
	FullName     string `json:"fullName"`
	Role         Role   `json:"role"`
}

// SignupRequest is the professional signup form.
type SignupRequest struct {
	Role            Role   `json:"role" example:"doctor"`
	FullName        string `json:"full_name" example:"Dr. Sara Hassan"`
	Email           string `json:"email" example:"sara@example.com"`
	Password        string `json:"password" example:"secret1"`
	ConfirmPassword string `json:"confirm_password" example:"secret1"`
}

// IsValidEmail reports whether email looks like local@domain.tld.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateSignup checks a signup form and returns the first problem found.
func ValidateSignup(req SignupRequest) error {
	if !req.Role.IsProfessional() {
		return ErrRoleRequired
	}
	if strings.TrimSpace(req.FullName) == "" {
		return ErrFullNameRequired
	}
	if strings.TrimSpace(req.Email) == "" {
		return ErrEmailRequired
	}
	if !IsValidEmail(req.Email) {
		return ErrInvalidEmail
	}
	if req.Password == "" {
		return ErrPasswordRequired
	}
	if len(req.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}
