package remote

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// NetworkFailureMessage is shown when a request never completed.
const NetworkFailureMessage = "Unable to reach the server. Please check your connection and try again."

// GenericFailureMessage is shown for errors that carry no user-facing text.
const GenericFailureMessage = "Something went wrong. Please try again."

// RemoteRejection is a non-2xx answer from the business API. Message is the server's text,
// shown to the user verbatim.
type RemoteRejection struct {
	StatusCode int
	Message    string
}

func (e *RemoteRejection) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return GenericFailureMessage
}

// NetworkFailure wraps a request that never produced a response.
type NetworkFailure struct {
	Err error
}

func (e *NetworkFailure) Error() string {
	return NetworkFailureMessage
}

// Unwrap exposes the transport error.
func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a RemoteRejection, optionally with one of the codes.
func IsRejection(err error, codes ...int) bool {
	var rej *RemoteRejection
	if !errors.As(err, &rej) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, code := range codes {
		if rej.StatusCode == code {
			return true
		}
	}
	return false
}

// UserMessage picks the text to display for err: the server message for rejections, the
// generic network text for transport failures, the inline text for validation errors.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var rej *RemoteRejection
	if errors.As(err, &rej) {
		return rej.Error()
	}
	var netErr *NetworkFailure
	if errors.As(err, &netErr) {
		return NetworkFailureMessage
	}
	var v *shared.ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	return GenericFailureMessage
}
