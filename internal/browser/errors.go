package browser

import (
	"errors"
	"fmt"
)

// ErrNoData is matched by every fetch that produced no usable payload.
var ErrNoData = errors.New("no data")

// Reason says why a fetch produced no data.
type Reason string

const (
	ReasonTimeout  Reason = "timeout"
	ReasonCanceled Reason = "canceled"
	ReasonTrigger  Reason = "trigger"
	ReasonStatus   Reason = "status"
	ReasonDecode   Reason = "decode"
	ReasonEmpty    Reason = "empty"
	ReasonExtract  Reason = "extract"
)

// NoDataError is returned when a correlated fetch yields nothing usable.
type NoDataError struct {
	Reason Reason
	URL    string
	Err    error
}

func (e *NoDataError) Error() string {
	msg := "no data (" + string(e.Reason) + ")"
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NoDataError) Unwrap() error { return e.Err }

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

func noData(reason Reason, url string, err error) *NoDataError {
	return &NoDataError{Reason: reason, URL: url, Err: err}
}

// ReasonOf returns the no-data reason carried by err, or "" when err is not
// a no-data error.
func ReasonOf(err error) Reason {
	var nd *NoDataError
	if errors.As(err, &nd) {
		return nd.Reason
	}
	return ""
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
