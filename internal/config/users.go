package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/crucial707/cashcard/internal/models"
	"gopkg.in/yaml.v3"
)

// usersFile is the on-disk layout of USERS_FILE:
//
//	users:
//	  - username: Bob
//	    password_hash: $2a$10$...
//	    role: CARD-OWNER
type usersFile struct {
	Users []models.User `yaml:"users"`
}

// LoadUsers reads a YAML user directory. Every entry needs a username, a bcrypt
// hash and a role; duplicate usernames (case-insensitive) are rejected.
func LoadUsers(path string) ([]models.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return ParseUsers(data)
}

// ParseUsers decodes the YAML body of a users file.
func ParseUsers(data []byte) ([]models.User, error) {
	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}

	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if u.Username == "" || u.PasswordHash == "" || u.Role == "" {
			return nil, fmt.Errorf("users file entry %d: username, password_hash and role are required", i)
		}
		key := strings.ToLower(u.Username)
		if seen[key] {
			return nil, fmt.Errorf("users file: duplicate username %q", u.Username)
		}
		seen[key] = true
	}
	return f.Users, nil
}
