package handlers

import (
	"context"
	"errors"
	"net/http"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/platform/apierr"
)

// mapError translates service errors into transport errors.
func mapError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	var nf *types.NotFoundError
	switch {
	case errors.As(err, &nf):
		return apierr.New(http.StatusNotFound, nf.Resource+"_not_found", err)
	case errors.Is(err, types.ErrInvalidInput):
		return apierr.New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, types.ErrInvalidParameter):
		return apierr.New(http.StatusBadRequest, "invalid_parameter", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
}
