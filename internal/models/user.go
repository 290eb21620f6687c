package models

// RoleCardOwner is required for every /cashcards route.
const RoleCardOwner = "CARD-OWNER"

// RoleNonOwner can authenticate but owns no cash cards.
const RoleNonOwner = "NON-OWNER"

type User struct {
	ID           int    `db:"id" json:"id" yaml:"-"`
	Username     string `db:"username" json:"username" yaml:"username"`
	PasswordHash string `db:"password_hash" json:"-" yaml:"password_hash"`
	Role         string `db:"role" json:"role" yaml:"role"`
}

// HasRole reports whether the user carries role.
func (u User) HasRole(role string) bool {
	return u.Role == role
}
