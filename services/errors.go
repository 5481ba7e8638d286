package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinels for outcomes handlers map to 4xx responses. Everything else a
// service returns is an infrastructure failure.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUserNotFound       = errors.New("user not found")
)

// isDuplicateKey covers postgres and the sqlite test driver, neither of
// which reliably maps conflicts to gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
