// Package handlers exposes the storefront services over HTTP with gin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/cart"
	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/coupons"
	"github.com/imrishuroy/go-storefront-orderflow/internal/orders"
	"github.com/imrishuroy/go-storefront-orderflow/internal/otp"
	"github.com/imrishuroy/go-storefront-orderflow/internal/validation"
	"github.com/imrishuroy/go-storefront-orderflow/internal/wallet"
)

// Services groups the dependencies of the routes.
type Services struct {
	Catalog *catalog.Service
	Cart    *cart.Service
	Coupons *coupons.Service
	Orders  *orders.Service
	Wallet  *wallet.Service
	OTP     *otp.Service // nil disables the /auth/otp routes
}

// Handler serves the storefront API.
type Handler struct {
	Services
	v   *validatorv10.Validate
	log *zap.Logger
}

// New returns a Handler.
func New(svc Services, log *zap.Logger) *Handler {
	return &Handler{Services: svc, v: validation.New(), log: log}
}

// RegisterRoutes registers every API route on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.health)

	user := r.Group("/", RequireUser())
	user.GET("/products", h.listProducts)
	user.GET("/products/:id", h.getProduct)

	user.GET("/cart", h.getCart)
	user.POST("/cart/items", h.addCartItem)
	user.PATCH("/cart/items/:productId", h.updateCartItem)
	user.DELETE("/cart/items/:productId", h.removeCartItem)
	user.DELETE("/cart", h.clearCart)

	user.POST("/coupons/apply", h.applyCoupon)
	user.GET("/coupons/eligible", h.eligibleCoupons)

	user.POST("/orders", h.placeOrder)
	user.GET("/orders", h.listOrders)
	user.GET("/orders/:id", h.getOrder)
	user.POST("/orders/:id/payment/verify", h.verifyPayment)
	user.POST("/orders/:id/cancel", h.cancelOrder)
	user.POST("/orders/:id/returns", h.requestReturn)

	user.GET("/wallet", h.getWallet)
	user.GET("/wallet/transactions", h.walletTransactions)

	if h.OTP != nil {
		r.POST("/auth/otp", h.issueOTP)
		r.POST("/auth/otp/verify", h.verifyOTP)
	}

	admin := r.Group("/admin", RequireAdmin())
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.POST("/categories", h.createCategory)
	admin.PATCH("/categories/:id", h.setCategoryVisibility)
	admin.POST("/offers", h.createOffer)
	admin.POST("/coupons", h.createCoupon)
	admin.PATCH("/orders/:id/status", h.updateOrderStatus)
	admin.POST("/orders/:id/returns/:requestId", h.processReturn)
	admin.POST("/wallets/:userId/referrals", h.creditReferral)
	admin.POST("/wallets/:userId/reconcile", h.reconcileWallet)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "storefront-api", "status": "healthy"})
}
