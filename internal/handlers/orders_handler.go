package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
)

const headerIdempotencyKey = "Idempotency-Key"

func (h *Handler) placeOrder(c *gin.Context) {
	var req validation.PlaceOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	in := orders.PlaceInput{
		UserID:         userID(c),
		Products:       make([]orders.LineInput, len(req.Products)),
		Address:        domain.Address(req.Address),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Coupons:        req.Coupons,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		TotalAmount:    req.TotalAmount,
		FinalAmount:    req.FinalAmount,
		IdempotencyKey: c.GetHeader(headerIdempotencyKey),
	}
	for i, p := range req.Products {
		in.Products[i] = orders.LineInput{ProductID: p.ProductID, Quantity: p.Quantity, Price: p.Price}
	}

	res, err := h.Orders.Place(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.Header("Location", fmt.Sprintf("/orders/%s", res.Order.OrderID))
	c.JSON(status, res)
}

func (h *Handler) listOrders(c *gin.Context) {
	list, err := h.Orders.List(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) verifyPayment(c *gin.Context) {
	var req validation.VerifyPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.Orders.VerifyPayment(c.Request.Context(), orders.VerifyPaymentInput{
		OrderID:          c.Param("id"),
		UserID:           userID(c),
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req validation.CancelOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	res, err := h.Orders.Cancel(c.Request.Context(), orders.CancelInput{
		OrderID:    c.Param("id"),
		UserID:     userID(c),
		ProductIDs: req.ProductIDs,
		Reason:     req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) requestReturn(c *gin.Context) {
	var req validation.ReturnRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, rr, err := h.Orders.RequestReturn(c.Request.Context(), orders.ReturnInput{
		OrderID:    c.Param("id"),
		UserID:     userID(c),
		ProductIDs: req.ProductIDs,
		Reason:     req.Reason,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": o, "return_request": rr})
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req validation.UpdateStatusRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	o, err := h.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status), req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) processReturn(c *gin.Context) {
	var req validation.ProcessReturnRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	res, err := h.Orders.ProcessReturn(c.Request.Context(), orders.ProcessReturnInput{
		OrderID:    c.Param("id"),
		RequestID:  c.Param("requestId"),
		Approve:    req.Action == "approve",
		AdminNote:  req.AdminNote,
		AllPending: req.AllPending,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
