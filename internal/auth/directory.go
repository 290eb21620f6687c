package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crucial707/cashcard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownUser is returned by a Directory when no user has the given name.
var ErrUnknownUser = errors.New("unknown user")

// Directory resolves a username to a stored user. Lookups ignore case; the
// returned user carries the canonical username.
type Directory interface {
	Lookup(ctx context.Context, username string) (models.User, error)
}

// ==========================
// MemoryDirectory
// ==========================

// MemoryDirectory is a read-only Directory held in memory. It is safe for concurrent use.
type MemoryDirectory struct {
	users map[string]models.User
}

func NewMemoryDirectory(users []models.User) *MemoryDirectory {
	m := make(map[string]models.User, len(users))
	for _, u := range users {
		m[strings.ToLower(u.Username)] = u
	}
	return &MemoryDirectory{users: m}
}

func (d *MemoryDirectory) Lookup(_ context.Context, username string) (models.User, error) {
	u, ok := d.users[strings.ToLower(username)]
	if !ok {
		return models.User{}, ErrUnknownUser
	}
	return u, nil
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// DevUsers returns the development users: Bob and Joe own cards, John does not.
// Passwords are hashed on every call.
func DevUsers() ([]models.User, error) {
	seed := []struct{ name, password, role string }{
		{"Bob", "abc123", models.RoleCardOwner},
		{"Joe", "123abc", models.RoleCardOwner},
		{"John", "xyz321", models.RoleNonOwner},
	}
	users := make([]models.User, 0, len(seed))
	for _, s := range seed {
		h, err := HashPassword(s.password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", s.name, err)
		}
		users = append(users, models.User{Username: s.name, PasswordHash: h, Role: s.role})
	}
	return users, nil
}
