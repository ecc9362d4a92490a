package httpx

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge is wrapped in a TransportError when a page exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// TransportError covers connection, timeout and body read failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("fetching %s: %v", e.URL, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.Code)
}

// DecodingError means the body could not be read as text.
type DecodingError struct {
	Charset string
	Err     error
}

func (e *DecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding body as %s: %v", e.Charset, e.Err)
	}
	return fmt.Sprintf("decoding body as %s: invalid text", e.Charset)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	var to interface{ Timeout() bool }
	return errors.As(te.Err, &to) && to.Timeout()
}
