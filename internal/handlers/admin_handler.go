package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/coupons"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func productInput(req validation.ProductRequest) catalog.ProductInput {
	return catalog.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryRef: req.CategoryRef,
		Images:      req.Images,
		Visible:     boolOr(req.Visible, true),
	}
}

func (h *Handler) createProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	p, err := h.Catalog.CreateProduct(c.Request.Context(), productInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req validation.ProductRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	p, err := h.Catalog.UpdateProduct(c.Request.Context(), c.Param("id"), productInput(req))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req validation.CategoryRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	cat, err := h.Catalog.CreateCategory(c.Request.Context(), req.Name, boolOr(req.Visible, true))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) setCategoryVisibility(c *gin.Context) {
	var req validation.CategoryVisibilityRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	cat, err := h.Catalog.SetCategoryVisibility(c.Request.Context(), c.Param("id"), *req.Visible)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) createOffer(c *gin.Context) {
	var req validation.OfferRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.Catalog.CreateOffer(c.Request.Context(), catalog.OfferInput{
		Name:          req.Name,
		DiscountValue: req.DiscountValue,
		ProductIDs:    req.ProductIDs,
		CategoryIDs:   req.CategoryIDs,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsActive:      boolOr(req.IsActive, true),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) createCoupon(c *gin.Context) {
	var req validation.CouponRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	cp, err := h.Coupons.Create(c.Request.Context(), coupons.CouponInput{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      domain.DiscountType(req.DiscountType),
		DiscountValue:     req.DiscountValue,
		MaxDiscount:       req.MaxDiscount,
		MinPurchaseAmount: req.MinPurchaseAmount,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		IsActive:          boolOr(req.IsActive, true),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}
