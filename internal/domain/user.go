// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

var ErrUsernameEmpty = errors.New("username empty")

type UserID string

// User is the connection's identity. The display name is bound per room on join.
type User struct {
	ID UserID `json:"id"`
}

func NewUser(id UserID) *User {
	return &User{ID: id}
}

// NormalizeUsername trims surrounding whitespace and rejects blank names.
// Duplicate names are allowed.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameEmpty
	}
	return username, nil
}
