package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps hub errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateRoom), errors.Is(err, core.ErrNoActiveRoom):
		return http.StatusConflict
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, core.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDeliverFailed), errors.Is(err, core.ErrDiscardFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrHubStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abortWithHubError writes err as an ErrorResponse. Unexpected errors are logged and hidden.
func abortWithHubError(c *gin.Context, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("hub request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: core.ErrCodeInternal})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: core.ErrorCode(err)})
}
