package nominatim

import (
	"errors"
	"fmt"
)

// ErrInvalidHeaderValue is returned when an identification string contains
// characters that are not legal in an HTTP header value.
var ErrInvalidHeaderValue = errors.New("invalid identification header value")

// Header names accepted by Nominatim for identifying the calling application.
const (
	headerUserAgent = "User-Agent"
	headerReferer   = "Referer"
)

// Identification describes how the client identifies itself to the Nominatim
// server, as required by the public instance's usage policy. Exactly one of
// the two strategies is active: a User-Agent application name or a Referer
// URL. The value is immutable once constructed.
type Identification struct {
	header string
	value  string
}

// UserAgent builds an Identification that sends the given application name
// in a User-Agent header. The string is sent verbatim; it is not sanitized.
func UserAgent(name string) (Identification, error) {
	return newIdentification(headerUserAgent, name)
}

// Referer builds an Identification that sends the given URL in a Referer
// header. The string is sent verbatim; it is not sanitized.
func Referer(url string) (Identification, error) {
	return newIdentification(headerReferer, url)
}

// Header returns the header name and value to attach to a request.
func (id Identification) Header() (name, value string) {
	return id.header, id.value
}

func newIdentification(header, value string) (Identification, error) {
	if !validHeaderValue(value) {
		return Identification{}, fmt.Errorf("%w: %q", ErrInvalidHeaderValue, value)
	}
	return Identification{header: header, value: value}, nil
}

// validHeaderValue reports whether s is a legal HTTP field value per
// RFC 9110: tab, space, visible ASCII and obs-text.
func validHeaderValue(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return false
		}
	}
	return true
}
