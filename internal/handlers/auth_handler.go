package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/otp"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func (h *Handler) issueOTP(c *gin.Context) {
	var req validation.IssueOTPRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	expires, err := h.OTP.Issue(c.Request.Context(), otp.Purpose(req.Purpose), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"expires_at": expires})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	var req validation.VerifyOTPRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	if err := h.OTP.Verify(c.Request.Context(), otp.Purpose(req.Purpose), req.Email, req.Code); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}
