package storage

import (
	"errors"
	"strings"

	"github.com/voicemon/voicemon/pkg/models"
)

// Common storage errors
var (
	ErrNotFound      = models.ErrNotFound
	ErrAlreadyExists = errors.New("record already exists")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure
// on the named index or column list
func isUniqueViolation(err error, target string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, target)
}
