// Package api implements the REST Surface of spec.md §6: a gin router that
// exposes every service as JSON-over-HTTP, mapping typed apperr.Error
// values to the `{error:true, code, message}` envelope.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/platform/apperr"
)

// errorEnvelope is the REST error shape of spec.md §6/§7.
type errorEnvelope struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError maps err to its HTTP status and the error envelope. Any
// error without an *apperr.Error in its chain is treated as internal.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("unexpected error", err)
	}
	c.JSON(appErr.HTTPStatus(), errorEnvelope{Error: true, Code: appErr.Code(), Message: appErr.Message})
}
