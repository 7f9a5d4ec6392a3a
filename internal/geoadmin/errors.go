package geoadmin

import "fmt"

// TransportError reports a failed round trip: no response, a non-2xx status,
// or a body that is not the expected JSON.
type TransportError struct {
	Endpoint   string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (HTTP %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseShapeError reports a well-formed response whose structure does not
// match the request, such as a profile with the wrong number of samples.
type ResponseShapeError struct {
	Endpoint string
	Reason   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s response: %s", e.Endpoint, e.Reason)
}

func shapeErrorf(endpoint, format string, args ...any) error {
	return &ResponseShapeError{Endpoint: endpoint, Reason: fmt.Sprintf(format, args...)}
}
