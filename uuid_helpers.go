package auth

import (
	"strings"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// ParseUserID parses a user identifier, returning ErrInvalidUserID
// when it is not a UUID.
func ParseUserID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil || parsed == uuid.Nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return parsed, nil
}

// DeterministicUserID derives a stable id from an email address
func DeterministicUserID(email string) (uuid.UUID, error) {
	return hashid.NewUUID(NormalizeEmail(email))
}
