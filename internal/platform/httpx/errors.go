// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-console/internal/remote"
	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// RespondError maps the console error taxonomy to HTTP responses using RFC7807. Remote
// rejections keep their status and message verbatim.
func RespondError(w http.ResponseWriter, err error) {
	var (
		verr      *shared.ValidationError
		rejection *remote.RemoteRejection
		network   *remote.NetworkFailure
	)
	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: verr.Message,
			Code:   verr.Code,
			Field:  verr.Field,
		})
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &rejection):
		status := rejection.StatusCode
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		Problem(w, status, http.StatusText(status), rejection.Error())
	case errors.As(err, &network):
		Problem(w, http.StatusBadGateway, "Bad Gateway", network.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
