package fetcher

import (
	"fmt"
	"time"
)

// OutcomeKind classifies the terminal state of a fetch.
type OutcomeKind int

const (
	// OutcomeSuccess means a 2xx response with the body attached.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeSkipped means robots rules disallowed the path; no request
	// was made.
	OutcomeSkipped
	// OutcomeFailed means the retry budget was exhausted or the error was
	// not retryable.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Outcome is the result of fetching one URL. It is never partially valid:
// a success carries the full body, anything else carries the reason.
type Outcome struct {
	Kind       OutcomeKind
	URL        string
	StatusCode int
	Body       []byte
	// Attempts counts requests actually issued, the successful one included.
	Attempts int
	Err      error
}

// Success reports whether the fetch produced a usable body.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// StatusError reports a non-2xx HTTP response. 429 and 5xx are retryable;
// other client errors are terminal.
type StatusError struct {
	Code int
	// RetryAfter is the parsed Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}
