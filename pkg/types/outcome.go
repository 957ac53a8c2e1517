// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StatusClass is the classified result of a single probe attempt.
type StatusClass string

const (
	StatusOK             StatusClass = "ok"
	StatusNotFound       StatusClass = "not_found"
	StatusForbidden      StatusClass = "forbidden"
	StatusRateLimited    StatusClass = "rate_limited"
	StatusServerError    StatusClass = "server_error"
	StatusTransportError StatusClass = "transport_error"
)

// Retryable reports whether an attempt ending in this class may be retried.
// ok, not_found and forbidden are terminal.
func (c StatusClass) Retryable() bool {
	switch c {
	case StatusRateLimited, StatusServerError, StatusTransportError:
		return true
	default:
		return false
	}
}

// ProbeOutcome records one physical request attempt. It is produced once
// per attempt and never mutated.
type ProbeOutcome struct {
	Class StatusClass `json:"class" yaml:"class"`

	// HTTPCode is nil when no response was received (transport errors).
	HTTPCode *int `json:"http_code,omitempty" yaml:"http_code,omitempty"`

	Latency time.Duration `json:"latency" yaml:"latency"`

	// URL is the URL that was probed.
	URL string `json:"url" yaml:"url"`

	// FinalURL is set when the request was redirected.
	FinalURL string `json:"final_url,omitempty" yaml:"final_url,omitempty"`

	// Method is the HTTP method of the request that produced the outcome.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// Error describes the transport failure, if any.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Code returns the HTTP status code, or 0 when absent.
func (o ProbeOutcome) Code() int {
	if o.HTTPCode == nil {
		return 0
	}
	return *o.HTTPCode
}

// TransportFailure builds a transport_error outcome with no HTTP code.
func TransportFailure(url, method, msg string, latency time.Duration) ProbeOutcome {
	return ProbeOutcome{
		Class:   StatusTransportError,
		URL:     url,
		Method:  method,
		Error:   msg,
		Latency: latency,
	}
}
