package api

import (
	"journey-board/internal/common/errors"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps a failure onto its HTTP status and the {error, message} body.
func writeError(c *gin.Context, err error) {
	stdErr := errors.AsStandardError(err)
	c.AbortWithStatusJSON(errors.HTTPStatus(stdErr), errorBody{
		Error:   string(stdErr.Code),
		Message: errorMessage(stdErr),
	})
}

func errorMessage(e *errors.StandardError) string {
	switch e.Code {
	case errors.ErrCodeValidationFailed:
		if e.Details != "" {
			return e.Message + ": " + e.Details
		}
	case errors.ErrCodeInternal:
		return "internal server error"
	}
	return e.Message
}
