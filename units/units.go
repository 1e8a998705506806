// Package units resolves dimension tokens such as "10mm" or "72" into
// PDF points.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Points per unit of each recognized measure.
const (
	perInch = 72.0
	perMM   = 72.0 / 25.4
	perCM   = 72.0 / 2.54
)

// MalformedDimensionError reports a dimension token that could not be
// resolved to points.
type MalformedDimensionError struct {
	Token  string
	Reason string
}

func (e *MalformedDimensionError) Error() string {
	return fmt.Sprintf("malformed dimension %q: %s", e.Token, e.Reason)
}

// Resolve parses a dimension token into points. The token is a decimal
// number followed by an optional unit: pt, point, points, mm, cm, in,
// inch, inches. A bare number means points. Unit matching is
// case-insensitive and surrounding whitespace is ignored.
func Resolve(token string) (float64, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, &MalformedDimensionError{Token: token, Reason: "empty token"}
	}
	split := len(s)
	for split > 0 {
		c := s[split-1]
		if (c >= '0' && c <= '9') || c == '.' || c == '+' || c == '-' {
			break
		}
		split--
	}
	numPart := strings.TrimSpace(s[:split])
	unitPart := strings.TrimSpace(s[split:])

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, &MalformedDimensionError{Token: token, Reason: "numeric part does not parse"}
	}
	factor, err := unitFactor(unitPart)
	if err != nil {
		return 0, &MalformedDimensionError{Token: token, Reason: err.Error()}
	}
	return value * factor, nil
}

func unitFactor(unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case "", "pt", "point", "points":
		return 1, nil
	case "mm":
		return perMM, nil
	case "cm":
		return perCM, nil
	case "in", "inch", "inches":
		return perInch, nil
	default:
		return 0, fmt.Errorf("unrecognized unit %q", unit)
	}
}
