// Package cart manages each user's cart. Prices are always resolved server-side and totals are
// recomputed from the lines on every mutation.
package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
)

// Service is the cart service.
type Service struct {
	store   *store.Store
	catalog *catalog.Service
	log     *zap.Logger
}

// NewService returns a cart Service.
func NewService(s *store.Store, c *catalog.Service, log *zap.Logger) *Service {
	return &Service{store: s, catalog: c, log: log}
}

// Get returns the user's cart, or an empty unsaved one.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
	}
	return c, nil
}

// AddItem adds quantity of a product, merging with an existing line. The line's price is
// refreshed from the current offers.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.NewError(domain.CodeInvalidQuantity, "quantity must be at least 1")
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.CheckAvailable(ctx, *p); err != nil {
		return nil, err
	}
	pricing, err := s.catalog.Resolve(ctx, *p)
	if err != nil {
		return nil, err
	}

	idx := indexOf(c, productID)
	total := quantity
	if idx >= 0 {
		total += c.Items[idx].Quantity
	}
	if err := checkQuantity(*p, total); err != nil {
		return nil, err
	}

	line := domain.CartItem{
		ProductID:     p.ProductID,
		Name:          p.Name,
		Quantity:      total,
		Price:         pricing.DiscountedPrice,
		OriginalPrice: pricing.OriginalPrice,
		Offer:         pricing.Offer,
	}
	if idx >= 0 {
		c.Items[idx] = line
	} else {
		c.Items = append(c.Items, line)
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("cart item added",
		zap.String("user_id", userID),
		zap.String("product_id", productID),
		zap.Int("quantity", total),
	)
	return c, nil
}

// UpdateQuantity sets the quantity of an existing line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(c, productID)
	if idx < 0 {
		return nil, domain.NewError(domain.CodeCartItemNotFound, "product %s is not in the cart", productID)
	}
	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkQuantity(*p, quantity); err != nil {
		return nil, err
	}
	c.Items[idx].Quantity = quantity
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(c, productID)
	if idx < 0 {
		return nil, domain.NewError(domain.CodeCartItemNotFound, "product %s is not in the cart", productID)
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.Version == 0 {
		return c, nil
	}
	c.Items = []domain.CartItem{}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *domain.Cart) error {
	Recompute(c)
	return s.store.SaveCart(ctx, c)
}

// Recompute derives TotalItems and TotalPrice from the lines.
func Recompute(c *domain.Cart) {
	items := 0
	lines := make([]float64, 0, len(c.Items))
	for _, it := range c.Items {
		items += it.Quantity
		lines = append(lines, money.Line(it.Price, it.Quantity))
	}
	c.TotalItems = items
	c.TotalPrice = money.Sum(lines...)
}

func checkQuantity(p domain.Product, quantity int) error {
	if quantity < 1 || quantity > domain.MaxQuantityPerProduct {
		return domain.NewError(domain.CodeInvalidQuantity,
			"quantity must be between 1 and %d", domain.MaxQuantityPerProduct)
	}
	if quantity > p.Stock {
		return domain.NewError(domain.CodeInsufficientStock,
			"only %d of %s left in stock", p.Stock, p.Name)
	}
	return nil
}

func indexOf(c *domain.Cart, productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}
