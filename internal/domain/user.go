package domain

import (
	"slices"
	"time"
)

const (
	RoleManager  = "manager"
	RoleClaimant = "claimant"
)

type User struct {
	ID        string    `json:"id"`
	Rev       string    `json:"_rev,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	Username  string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string    `json:"email" validate:"required,email"`
	FullName  string    `json:"full_name"`
	Password  string    `json:"password,omitempty"` // stored hashed, cleared before responses
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// DisplayName is what gets written into claim records as the claimant name.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"full_name" validate:"max=100"`
	Password string   `json:"password" validate:"required,min=8"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=manager claimant"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
}

// EditUserRequest is a manager update of another account.
type EditUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"full_name" validate:"max=100"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=manager claimant"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Roles  []string
}

func (a Actor) IsManager() bool {
	return slices.Contains(a.Roles, RoleManager)
}
