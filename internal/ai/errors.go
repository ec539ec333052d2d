package ai

import (
	"errors"
	"fmt"
)

// ErrModelLoading signals a transient upstream state: the hosted model is
// still warming up and the call should be retried by the client.
var ErrModelLoading = errors.New("model is loading, retry shortly")

// UpstreamError wraps a hard failure reported by an external AI provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s upstream error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Provider, e.Message)
}
