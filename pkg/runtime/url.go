package runtime

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

// ValidateHTTPURL accepts absolute http(s) URLs with a host.
func ValidateHTTPURL(raw string) error {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%w: %q must be http or https", ErrInvalidURL, raw)
	case u.Host == "":
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return nil
}
