// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const MaxUserIDLen = 128

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the application-level identity a client registers under.
type UserID string

// ConnID identifies one live transport connection.
type ConnID string

// ParseUserID trims the raw id and checks its bounds.
func ParseUserID(raw string) (UserID, error) {
	id := strings.TrimSpace(raw)
	if len(id) == 0 {
		return "", ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(id), nil
}
