package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned for non-2xx replies from the inference endpoint.
// Status carries the API-level status token (e.g. RESOURCE_EXHAUSTED) when
// the error envelope included one.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inference endpoint status %d", e.StatusCode)
	if e.Status != "" {
		fmt.Fprintf(&b, " (%s)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// rateLimitMarkers are the textual fallbacks when no structured status is
// available on the error.
var rateLimitMarkers = []string{"429", "rate limit", "quota", "resource_exhausted", "too many requests"}

// IsRateLimit reports whether err indicates request-rate or quota exhaustion.
// The structured status wins when present; otherwise the error text is
// scanned for the usual markers.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if strings.EqualFold(se.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
