package quotaapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/quotakit/pkg/quota"
)

// HTTPError pairs a status code with a stable machine-readable key.
type HTTPError struct {
	Code int
	Key  string
}

// Error returns the key, which is what clients match on.
func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest           = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrInvalidArgument      = HTTPError{Code: http.StatusBadRequest, Key: "invalid_argument"}
	ErrUnsupportedMediaType = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type"}
	ErrRequestTooLarge      = HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"}
	ErrWalletNotFound       = HTTPError{Code: http.StatusNotFound, Key: "wallet_not_found"}
	ErrConflict             = HTTPError{Code: http.StatusConflict, Key: "concurrency_conflict"}
	ErrUnavailable          = HTTPError{Code: http.StatusServiceUnavailable, Key: "store_unavailable"}
	ErrTimeout              = HTTPError{Code: http.StatusGatewayTimeout, Key: "timeout"}
	ErrInternal             = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error"}
)

// reasonInsufficientQuota is reported inside a 200 response, never as an
// error status.
const reasonInsufficientQuota = "insufficient_quota"

// reasonOf labels a denied consume in the response body.
func reasonOf(err error) string {
	if errors.Is(err, quota.ErrInsufficientQuota) {
		return reasonInsufficientQuota
	}
	return ""
}

// statusOf maps ledger and decoding errors onto HTTP errors.
func statusOf(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, quota.ErrInvalidArgument):
		return ErrInvalidArgument
	case errors.Is(err, quota.ErrWalletNotFound):
		return ErrWalletNotFound
	case errors.Is(err, quota.ErrConcurrencyConflict):
		return ErrConflict
	case errors.Is(err, quota.ErrStoreUnavailable):
		return ErrUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	default:
		return ErrInternal
	}
}
