package repo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/models"
)

// UserRepo must satisfy the directory used by the authentication middleware.
var _ auth.Directory = (*UserRepo)(nil)

func TestUserRepo_Lookup(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, password_hash, role FROM users WHERE LOWER(username) = LOWER($1)`)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role"}).
			AddRow(1, "Bob", "$2a$10$hash", models.RoleCardOwner))

	u, err := NewUserRepo(db).Lookup(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if u.ID != 1 || u.Username != "Bob" || u.Role != models.RoleCardOwner || u.PasswordHash == "" {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Lookup_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password_hash, role FROM users`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).Lookup(context.Background(), "nobody")
	if !errors.Is(err, auth.ErrUnknownUser) {
		t.Errorf("err = %v, want auth.ErrUnknownUser", err)
	}
}

func TestUserRepo_Lookup_DBError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password_hash, role FROM users`).
		WillReturnError(errors.New("timeout"))

	_, err := NewUserRepo(db).Lookup(context.Background(), "Bob")
	if err == nil || errors.Is(err, auth.ErrUnknownUser) {
		t.Errorf("err = %v, want database error", err)
	}
}

func TestUserRepo_Upsert(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users \(username, password_hash, role\)`).
		WithArgs("Joe", "$2a$10$hash", models.RoleCardOwner).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := NewUserRepo(db).Upsert(context.Background(), models.User{
		Username:     "Joe",
		PasswordHash: "$2a$10$hash",
		Role:         models.RoleCardOwner,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
