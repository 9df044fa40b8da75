// Package expiry parses duration specs of the form "<n><unit>" and computes
// absolute expiration instants. Specs are the unit the rest of the system
// configures token and session lifetimes in ("15m", "1h", "30d").
package expiry

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// OneDay is the rotation threshold for refresh sessions: a session with less
// than this much life remaining gets its expiry extended on refresh.
const OneDay = 24 * time.Hour

var (
	// ErrInvalidFormat is returned when a spec does not match "<n><unit>".
	ErrInvalidFormat = errors.New("invalid expiration spec format")
	// ErrInvalidUnit is returned when the unit is outside m/h/d. The spec
	// pattern already restricts the unit, so this branch is defensive.
	ErrInvalidUnit = errors.New("invalid expiration spec unit")
)

var specPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

// ExpirationFrom resolves spec against the given reference instant.
// It is pure: a fixed reference yields a fixed result.
func ExpirationFrom(reference time.Time, spec string) (time.Time, error) {
	match := specPattern.FindStringSubmatch(spec)
	if match == nil {
		return time.Time{}, ErrInvalidFormat
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, ErrInvalidFormat
	}

	switch match[2] {
	case "m":
		return reference.Add(time.Duration(value) * time.Minute), nil
	case "h":
		return reference.Add(time.Duration(value) * time.Hour), nil
	case "d":
		return reference.AddDate(0, 0, value), nil
	default:
		return time.Time{}, ErrInvalidUnit
	}
}

// CalculateExpirationDate resolves spec against the current time.
func CalculateExpirationDate(spec string) (time.Time, error) {
	return ExpirationFrom(time.Now(), spec)
}

// Duration resolves spec to a duration relative to now. Day-based specs go
// through the calendar so they agree with ExpirationFrom across DST shifts.
func Duration(spec string) (time.Duration, error) {
	now := time.Now()
	at, err := ExpirationFrom(now, spec)
	if err != nil {
		return 0, err
	}
	return at.Sub(now), nil
}
