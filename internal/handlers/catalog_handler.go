package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func (h *Handler) listProducts(c *gin.Context) {
	listings, err := h.Catalog.ListStorefront(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": listings})
}

func (h *Handler) getProduct(c *gin.Context) {
	listing, err := h.Catalog.GetStorefront(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) getCart(c *gin.Context) {
	ct, err := h.Cart.Get(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req validation.AddCartItemRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	ct, err := h.Cart.AddItem(c.Request.Context(), userID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req validation.UpdateCartItemRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	ct, err := h.Cart.UpdateQuantity(c.Request.Context(), userID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	ct, err := h.Cart.RemoveItem(c.Request.Context(), userID(c), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) clearCart(c *gin.Context) {
	ct, err := h.Cart.Clear(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) applyCoupon(c *gin.Context) {
	var req validation.ApplyCouponRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	quote, err := h.Coupons.Apply(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// eligibleCoupons lists the coupons usable against the caller's current cart.
func (h *Handler) eligibleCoupons(c *gin.Context) {
	current, err := h.Cart.Get(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Coupons.Eligible(c.Request.Context(), current.TotalPrice)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subtotal": current.TotalPrice, "coupons": list})
}
