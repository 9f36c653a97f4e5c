package flagsmith

import "fmt"

// ErrorKind classifies a fetch failure. Only transient failures may be
// retried; every other kind is fatal on first sight.
type ErrorKind int

const (
	// ErrorTransient covers transport failures, HTTP 5xx and 429.
	ErrorTransient ErrorKind = iota
	// ErrorAuth covers HTTP 401/403 (bad or missing API key).
	ErrorAuth
	// ErrorNotFound covers HTTP 404 (unknown environment).
	ErrorNotFound
	// ErrorParse covers malformed response bodies and unexpected statuses.
	ErrorParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTransient:
		return "transient"
	case ErrorAuth:
		return "authentication"
	case ErrorNotFound:
		return "not found"
	case ErrorParse:
		return "parse"
	}
	return "unknown"
}

// FetchError is the failure type returned by Client.Fetch. Status is
// the HTTP status code when one was received, 0 otherwise.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the run loop may retry this failure.
func (e *FetchError) Retryable() bool { return e.Kind == ErrorTransient }
