package requester

import (
	"errors"
	"net/http"
)

// ErrUnauthorized is returned for any 401 response; the session has already been demoted.
var ErrUnauthorized = errors.New("requester: unauthorized")

// UnauthorizedHandler reacts to a 401 for the token the request carried
type UnauthorizedHandler interface {
	HandleUnauthorized(token string)
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}
