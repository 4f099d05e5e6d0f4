package schema

import "strings"

// NormalizeActionKind validates and normalizes an action kind value.
// Allowed values: code, command, api, plan.
func NormalizeActionKind(value string) (ActionKind, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "", ErrInvalidActionKind
	}
	switch trimmed {
	case "code", "command", "api", "plan":
		return ActionKind(trimmed), nil
	default:
		return "", ErrInvalidActionKind
	}
}

// NormalizeSafetyTier validates and normalizes a safety tier value.
// Allowed values: low, medium, high.
func NormalizeSafetyTier(value string) (SafetyTier, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "", ErrInvalidSafetyTier
	}
	switch trimmed {
	case "low", "medium", "high":
		return SafetyTier(trimmed), nil
	default:
		return "", ErrInvalidSafetyTier
	}
}

// ValidateUserID ensures a user id matches [a-z0-9._-] with no normalization.
func ValidateUserID(userID UserID) error {
	raw := string(userID)
	if raw == "" {
		return ErrInvalidUser
	}
	if strings.TrimSpace(raw) != raw {
		return ErrInvalidUser
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidUser
	}
	return nil
}
