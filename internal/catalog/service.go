// Package catalog serves products with their resolved offer pricing and runs the admin catalog
// operations.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
)

// MaxImages is the most images a product may carry.
const MaxImages = 3

// Service reads and administers the catalog.
type Service struct {
	store   *store.Store
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewService returns a catalog Service.
func NewService(s *store.Store, log *zap.Logger) *Service {
	return &Service{store: s, log: log, nowFunc: time.Now}
}

// Listing is a storefront product with its current price.
type Listing struct {
	domain.Product
	Pricing Pricing `json:"pricing"`
}

// Resolve returns p's pricing against the offers active now.
func (s *Service) Resolve(ctx context.Context, p domain.Product) (Pricing, error) {
	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return Pricing{}, err
	}
	return ResolvePricing(p, offers, s.nowFunc()), nil
}

// ResolveAt prices every product against the offers active at now, reading the offers once.
func (s *Service) ResolveAt(ctx context.Context, products []*domain.Product, now time.Time) ([]Pricing, error) {
	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Pricing, len(products))
	for i, p := range products {
		out[i] = ResolvePricing(*p, offers, now)
	}
	return out, nil
}

// Product returns a product regardless of visibility.
func (s *Service) Product(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.NewError(domain.CodeProductNotFound, "product %s not found", productID)
	}
	return p, nil
}

// CheckAvailable fails with product_unavailable if p or its category is hidden.
func (s *Service) CheckAvailable(ctx context.Context, p domain.Product) error {
	if !p.Visible {
		return domain.NewError(domain.CodeProductUnavailable, "product %s is not available", p.ProductID)
	}
	if p.CategoryRef == "" {
		return nil
	}
	c, err := s.store.GetCategory(ctx, p.CategoryRef)
	if err != nil {
		return err
	}
	if c != nil && !c.Visible {
		return domain.NewError(domain.CodeProductUnavailable, "product %s is not available", p.ProductID)
	}
	return nil
}

// ListStorefront returns visible products of visible categories, priced, sorted by name.
func (s *Service) ListStorefront(ctx context.Context) ([]Listing, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, err
	}

	hidden := map[string]bool{}
	for _, c := range categories {
		if !c.Visible {
			hidden[c.CategoryID] = true
		}
	}

	now := s.nowFunc()
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		if !p.Visible || hidden[p.CategoryRef] {
			continue
		}
		out = append(out, Listing{Product: p, Pricing: ResolvePricing(p, offers, now)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetStorefront returns one available product with its pricing.
func (s *Service) GetStorefront(ctx context.Context, productID string) (*Listing, error) {
	p, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.CheckAvailable(ctx, *p); err != nil {
		return nil, err
	}
	pricing, err := s.Resolve(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &Listing{Product: *p, Pricing: pricing}, nil
}

// ProductInput carries the admin-editable product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	CategoryRef string
	Images      []string
	Visible     bool
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return domain.NewError(domain.CodeInvalidInput, "name is required")
	case in.Price <= 0:
		return domain.NewError(domain.CodeInvalidAmount, "price must be positive")
	case in.Stock < 0:
		return domain.NewError(domain.CodeInvalidQuantity, "stock cannot be negative")
	case len(in.Images) < 1 || len(in.Images) > MaxImages:
		return domain.NewError(domain.CodeInvalidInput, "a product needs 1 to %d images", MaxImages)
	}
	return nil
}

// CreateProduct adds a product. Names are unique, ignoring case.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}
	categoryName, err := s.categoryName(ctx, in.CategoryRef)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	p := domain.Product{
		ProductID:   uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    categoryName,
		CategoryRef: in.CategoryRef,
		Images:      in.Images,
		Visible:     in.Visible,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", p.ProductID), zap.String("name", p.Name))
	return &p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, productID string, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, in.Name, productID); err != nil {
		return nil, err
	}
	categoryName, err := s.categoryName(ctx, in.CategoryRef)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.Category = categoryName
	p.CategoryRef = in.CategoryRef
	p.Images = in.Images
	p.Visible = in.Visible
	p.UpdatedAt = s.nowFunc().UTC()
	if err := s.store.UpdateProduct(ctx, *p); err != nil {
		return nil, err
	}
	s.log.Info("product updated", zap.String("product_id", p.ProductID))
	return p, nil
}

func (s *Service) checkNameFree(ctx context.Context, name, exceptID string) error {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	for _, p := range products {
		if p.ProductID != exceptID && strings.EqualFold(p.Name, name) {
			return domain.NewError(domain.CodeDuplicateName, "product %q already exists", name)
		}
	}
	return nil
}

func (s *Service) categoryName(ctx context.Context, categoryID string) (string, error) {
	if categoryID == "" {
		return "", nil
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", domain.NewError(domain.CodeCategoryNotFound, "category %s not found", categoryID)
	}
	return c.Name, nil
}

// CreateCategory adds a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, name string, visible bool) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "name is required")
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return nil, domain.NewError(domain.CodeDuplicateName, "category %q already exists", name)
		}
	}

	now := s.nowFunc().UTC()
	c := domain.Category{
		CategoryID: uuid.NewString(),
		Name:       name,
		Visible:    visible,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveCategory(ctx, c, true); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.String("category_id", c.CategoryID), zap.String("name", c.Name))
	return &c, nil
}

// SetCategoryVisibility shows or hides a category and, with it, its products on the storefront.
func (s *Service) SetCategoryVisibility(ctx context.Context, categoryID string, visible bool) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NewError(domain.CodeCategoryNotFound, "category %s not found", categoryID)
	}
	c.Visible = visible
	c.UpdatedAt = s.nowFunc().UTC()
	if err := s.store.SaveCategory(ctx, *c, false); err != nil {
		return nil, err
	}
	s.log.Info("category visibility changed", zap.String("category_id", categoryID), zap.Bool("visible", visible))
	return c, nil
}

// OfferInput carries the fields of a new offer.
type OfferInput struct {
	Name          string
	DiscountValue float64
	ProductIDs    []string
	CategoryIDs   []string
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
}

// CreateOffer adds a percentage offer scoped to products or categories.
func (s *Service) CreateOffer(ctx context.Context, in OfferInput) (*domain.Offer, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, domain.NewError(domain.CodeInvalidInput, "name is required")
	case in.DiscountValue <= 0 || in.DiscountValue >= 100:
		return nil, domain.NewError(domain.CodeInvalidAmount, "discount must be between 0 and 100 percent")
	case len(in.ProductIDs) == 0 && len(in.CategoryIDs) == 0:
		return nil, domain.NewError(domain.CodeInvalidInput, "offer must target products or categories")
	case !in.EndDate.After(in.StartDate):
		return nil, domain.NewError(domain.CodeInvalidInput, "end date must be after start date")
	}

	o := domain.Offer{
		OfferID:       uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		DiscountValue: in.DiscountValue,
		ProductIDs:    in.ProductIDs,
		CategoryIDs:   in.CategoryIDs,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		IsActive:      in.IsActive,
		CreatedAt:     s.nowFunc().UTC(),
	}
	if err := s.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}
	s.log.Info("offer created", zap.String("offer_id", o.OfferID), zap.Float64("discount", o.DiscountValue))
	return &o, nil
}
