package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	code := domain.CodeOf(err)
	if code == domain.CodeInvalidSignature {
		return http.StatusBadRequest
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindMismatch, domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": code, "message": msg}. Internal errors are logged and
// their detail is not exposed.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := domain.CodeOf(err)
	msg := "internal server error"

	var de *domain.Error
	if errors.As(err, &de) && status != http.StatusInternalServerError {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("trace_id", TraceID(c)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": code, "message": msg})
}
