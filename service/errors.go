package service

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIndexOutOfRange = errors.New("index out of bounds")
	ErrEmptyEndpoint   = errors.New("board endpoint is empty")
	ErrUnauthorized    = &StatusError{Code: http.StatusUnauthorized, Body: "access token is invalid"}
)

// StatusError is a non-200 answer from the token or board directory endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// StatusCode extracts the HTTP status carried by err: 200 for nil, the
// StatusError code when present, 0 when the call never got a response.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
