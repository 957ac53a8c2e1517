// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/pdiddy/refverify/pkg/types"
)

// ClassifyStatus maps an HTTP status code to a status class. Rules are
// checked in order: 2xx ok, 404/410 not_found, 403 forbidden, 429
// rate_limited, 5xx server_error. Any other code means the identifier
// did not resolve to a usable resource and classifies as not_found.
func ClassifyStatus(code int) types.StatusClass {
	switch {
	case code >= 200 && code <= 299:
		return types.StatusOK
	case code == http.StatusNotFound || code == http.StatusGone:
		return types.StatusNotFound
	case code == http.StatusForbidden:
		return types.StatusForbidden
	case code == http.StatusTooManyRequests:
		return types.StatusRateLimited
	case code >= 500 && code <= 599:
		return types.StatusServerError
	default:
		return types.StatusNotFound
	}
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// headUnusable reports whether a HEAD result should be retried as GET:
// hosts that reject the method (405, 501), hosts that refuse HEAD with
// 403, and non-timeout transport failures such as a dropped connection.
func headUnusable(code int, err error) bool {
	if err != nil {
		return !isTimeout(err) && !errors.Is(err, context.Canceled)
	}
	switch code {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented, http.StatusForbidden:
		return true
	}
	return false
}
