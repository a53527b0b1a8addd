package domain

import (
	"context"
	"errors"
)

// User is the authenticated caller of the service.
type User struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// Role represents a user's access level
type Role string

const (
	// RoleManager may approve and decline expenses.
	RoleManager Role = "manager"

	// RoleEmployee may only read.
	RoleEmployee Role = "employee"
)

var validRoles = map[Role]bool{
	RoleManager:  true,
	RoleEmployee: true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanDecide reports whether the role may transition expenses.
func (r Role) CanDecide() bool {
	return r == RoleManager
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type userContextKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user stored by WithUser, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*User)
	return u, ok && u != nil
}
