package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// GetProduct fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return getItem[domain.Product](ctx, s, s.tables.Products, keyProduct, productID)
}

// ListProducts returns every product.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return scanAll[domain.Product](ctx, s, s.tables.Products)
}

// CreateProduct inserts a new product.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) error {
	return s.put(ctx, s.tables.Products, keyProduct, p, true)
}

// UpdateProduct overwrites an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	err := s.put(ctx, s.tables.Products, keyProduct, p, false)
	if isConditionFailed(err) {
		return domain.NewError(domain.CodeProductNotFound, "product %s not found", p.ProductID)
	}
	return err
}

// GetCategory fetches a category by id. Returns (nil, nil) if not found.
func (s *Store) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	return getItem[domain.Category](ctx, s, s.tables.Categories, keyCategory, categoryID)
}

// ListCategories returns every category.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return scanAll[domain.Category](ctx, s, s.tables.Categories)
}

// SaveCategory creates or replaces a category.
func (s *Store) SaveCategory(ctx context.Context, c domain.Category, create bool) error {
	err := s.put(ctx, s.tables.Categories, keyCategory, c, create)
	if !create && isConditionFailed(err) {
		return domain.NewError(domain.CodeCategoryNotFound, "category %s not found", c.CategoryID)
	}
	return err
}

// ListOffers returns every offer.
func (s *Store) ListOffers(ctx context.Context) ([]domain.Offer, error) {
	return scanAll[domain.Offer](ctx, s, s.tables.Offers)
}

// CreateOffer inserts a new offer.
func (s *Store) CreateOffer(ctx context.Context, o domain.Offer) error {
	return s.put(ctx, s.tables.Offers, keyOffer, o, true)
}

// GetCoupon fetches a coupon by code. Returns (nil, nil) if not found.
func (s *Store) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	return getItem[domain.Coupon](ctx, s, s.tables.Coupons, keyCoupon, code)
}

// ListCoupons returns every coupon.
func (s *Store) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	return scanAll[domain.Coupon](ctx, s, s.tables.Coupons)
}

// CreateCoupon inserts a new coupon; the code must be unused.
func (s *Store) CreateCoupon(ctx context.Context, c domain.Coupon) error {
	err := s.put(ctx, s.tables.Coupons, keyCoupon, c, true)
	if isConditionFailed(err) {
		return domain.NewError(domain.CodeDuplicateName, "coupon %s already exists", c.Code)
	}
	return err
}

func isConditionFailed(err error) bool {
	var cc *types.ConditionalCheckFailedException
	return err != nil && errors.As(err, &cc)
}
