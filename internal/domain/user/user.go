package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired       = errors.New("user: id is required")
	ErrEmailRequired    = errors.New("user: email is required")
	ErrNameRequired     = errors.New("user: name is required")
	ErrEmailAlreadyUsed = errors.New("user: email already used")
	ErrNotFound         = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleClient Role = "client"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// User is a marketplace account. The chat subsystem only reads identity,
// display name and active state through the directory port.
type User struct {
	ID        ID
	Email     string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID        ID
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	role := params.Role
	if role == "" {
		role = RoleClient
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	return &User{
		ID:        ID(id),
		Email:     email,
		Name:      name,
		Role:      role,
		Active:    true,
		CreatedAt: now.UTC(),
	}, nil
}

// Deactivate disables the account. Inactive users cannot open new
// conversations; existing threads keep their name snapshots.
func (u *User) Deactivate() {
	u.Active = false
}
