package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crucial707/cashcard/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Unknown usernames are still checked against a hash so they cost the same as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("cashcard-placeholder"), bcrypt.DefaultCost)
	return h
})

// Authenticator verifies username/password pairs against a Directory.
type Authenticator struct {
	Directory Directory
}

func NewAuthenticator(dir Directory) *Authenticator {
	return &Authenticator{Directory: dir}
}

// Authenticate returns the stored user when password matches. Errors other than
// ErrInvalidCredentials come from the directory.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := a.Directory.Lookup(ctx, username)
	if errors.Is(err, ErrUnknownUser) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup %q: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}
