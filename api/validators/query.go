package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
)

// QueryInt reads key as an integer in [min, max]; absent means fallback.
func QueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Validation(pkgerrors.Violation(key, "must be a whole number"))
	}
	if n < min || n > max {
		return 0, pkgerrors.Validation(pkgerrors.Violation(key, "must be between %d and %d", min, max))
	}
	return n, nil
}

// QueryText reads key with control characters removed and surrounding space
// trimmed, cut to at most maxRunes runes when maxRunes > 0.
func QueryText(r *http.Request, key string, maxRunes int) string {
	cleaned := strings.TrimSpace(strings.Map(func(c rune) rune {
		if unicode.IsControl(c) {
			return -1
		}
		return c
	}, r.URL.Query().Get(key)))
	if maxRunes > 0 {
		if runes := []rune(cleaned); len(runes) > maxRunes {
			return strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return cleaned
}
