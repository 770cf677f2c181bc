package backendclient

import "errors"

// GenericFailureMessage is shown when the backend fails without explaining why.
const GenericFailureMessage = "Network response was not ok"

// ErrNoBackend is returned when no backend URL is configured.
var ErrNoBackend = errors.New("backend url is not configured")

// ServerError carries an error message reported by the backend.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return e.Message
}

// TransportError covers unreachable backends, timeouts and unexplained
// non-success responses.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Err
}
