package validators

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// BearerToken extracts the token from an Authorization header value.
// A bare token without the scheme is accepted.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1], nil
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		return parts[0], nil
	}
	return "", ErrMissingToken
}
