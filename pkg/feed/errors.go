package feed

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSchema is wrapped by errors for responses that decoded but are missing
// required fields.
var ErrSchema = errors.New("response did not match schema")

// APIError is a server-reported failure: a response body with "error": true.
type APIError struct {
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: API server returned error; no details provided", e.Path)
	}
	return fmt.Sprintf("%s: API server returned error: %s", e.Path, e.Message)
}

// StatusError is a non-2xx HTTP response that is not otherwise handled.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Path, e.Code)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
