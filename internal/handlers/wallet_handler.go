package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func (h *Handler) getWallet(c *gin.Context) {
	w, err := h.Wallet.Get(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) walletTransactions(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		h.respondError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	hist, err := h.Wallet.History(c.Request.Context(), userID(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (h *Handler) creditReferral(c *gin.Context) {
	var req validation.ReferralRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	w, err := h.Wallet.CreditReferral(c.Request.Context(), c.Param("userId"), req.ReferredUserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) reconcileWallet(c *gin.Context) {
	rec, err := h.Wallet.Reconcile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.CodeInvalidInput, "%s must be a number", name)
	}
	return n, nil
}
