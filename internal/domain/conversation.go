package domain

import (
	"fmt"
	"strings"
)

// KeySeparator joins the two participant ids of a conversation key.
const KeySeparator = "_"

// ConversationKey returns the order independent key for the pair (a, b).
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + KeySeparator + b
}

// Participants splits a conversation key back into its two ids.
func Participants(key string) (string, string, error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed conversation key %q", ErrValidation, key)
	}
	return parts[0], parts[1], nil
}

// ValidateUserID rejects ids that cannot be stored as summary map keys.
func ValidateUserID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: user id is required", ErrValidation)
	case strings.HasPrefix(id, "$"), strings.ContainsAny(id, "."+KeySeparator):
		return fmt.Errorf("%w: user id %q contains reserved characters", ErrValidation, id)
	}
	return nil
}

func ValidateParticipants(a, b string) error {
	if err := ValidateUserID(a); err != nil {
		return err
	}
	if err := ValidateUserID(b); err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("%w: sender and receiver must differ", ErrValidation)
	}
	return nil
}
