package domain

import (
	"errors"
	"fmt"
)

// TransportError is returned when the upstream API could not be reached or
// answered with a non-2xx status. StatusCode is zero for network failures.
type TransportError struct {
	SeriesID   SeriesID
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error for %s: unexpected status code %d from %s", e.subject(), e.StatusCode, e.URL)
	}
	return fmt.Sprintf("transport error for %s: %v", e.subject(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) subject() string {
	if e.SeriesID != "" {
		return string(e.SeriesID)
	}
	return e.URL
}

// ParseError is returned when an upstream document is not a valid series payload.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AggregationError aborts a strict aggregation. It wraps the first
// per-series error met in input order.
type AggregationError struct {
	SeriesID SeriesID
	Err      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation aborted on %s: %v", e.SeriesID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParse reports whether err is or wraps a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsAggregation reports whether err is or wraps an AggregationError.
func IsAggregation(err error) bool {
	var ae *AggregationError
	return errors.As(err, &ae)
}
