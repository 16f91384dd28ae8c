package domain

import (
	"strconv"
	"strings"
)

// Validate checks a raw value against its definition and returns the
// canonical stored form.
func Validate(def Definition, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidValue
	}

	switch def.Kind {
	case KindBool:
		parsed, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return "", ErrInvalidValue
		}
		return strconv.FormatBool(parsed), nil
	case KindInt, KindMoney, KindPercent:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", ErrInvalidValue
		}
		if parsed < def.Min || parsed > def.Max {
			return "", ErrOutOfRange
		}
		return strconv.FormatInt(parsed, 10), nil
	default:
		return "", ErrInvalidValue
	}
}

// ParseInt64 interprets a stored value for Int, Money, and Percent kinds.
func ParseInt64(def Definition, stored string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(stored), 10, 64)
	if err != nil {
		return 0, ErrInvalidValue
	}
	return parsed, nil
}

// ParseBool interprets a stored value for Bool kinds.
func ParseBool(def Definition, stored string) (bool, error) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(stored))
	if err != nil {
		return false, ErrInvalidValue
	}
	return parsed, nil
}
