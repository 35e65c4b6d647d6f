package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/go-storefront-orderflow/internal/catalog"
	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store/dynamotest"
)

func newTestService(t *testing.T) (*Service, *dynamotest.DB) {
	t.Helper()
	tables := config.DefaultTables()
	db := dynamotest.New(store.KeySchema(tables))
	st := store.New(db, tables)
	log := zaptest.NewLogger(t)
	return NewService(st, catalog.NewService(st, log), log), db
}

func seed(t *testing.T, db *dynamotest.DB, table string, v any) {
	t.Helper()
	if err := db.Put(table, v); err != nil {
		t.Fatalf("seed %s: %v", table, err)
	}
}

func TestAddItem_PricesFromOffersAndMerges(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, db, "products", domain.Product{ProductID: "p1", Name: "Lamp", Price: 400, Stock: 10, Visible: true})
	seed(t, db, "products", domain.Product{ProductID: "p2", Name: "Rug", Price: 150, Stock: 10, Visible: true})
	seed(t, db, "offers", domain.Offer{
		OfferID: "o1", Name: "Lamp sale", DiscountValue: 25, ProductIDs: []string{"p1"},
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour), IsActive: true,
	})

	if _, err := svc.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p2", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c, err := svc.AddItem(ctx, "u1", "p1", 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if len(c.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Items))
	}
	lamp := c.Items[0]
	if lamp.Quantity != 2 || lamp.Price != 300 || lamp.OriginalPrice != 400 || lamp.Offer == nil {
		t.Fatalf("unexpected lamp line %+v", lamp)
	}
	if c.TotalItems != 4 || c.TotalPrice != 900 {
		t.Fatalf("totals = %d / %v, want 4 / 900", c.TotalItems, c.TotalPrice)
	}

	stored, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.TotalPrice != 900 || stored.Version != 3 {
		t.Fatalf("stored cart mismatch: %+v", stored)
	}
}

func TestAddItem_QuantityCaps(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, db, "products", domain.Product{ProductID: "p1", Name: "Mug", Price: 10, Stock: 10, Visible: true})
	seed(t, db, "products", domain.Product{ProductID: "p2", Name: "Cup", Price: 10, Stock: 1, Visible: true})

	if _, err := svc.AddItem(ctx, "u1", "p1", 0); domain.CodeOf(err) != domain.CodeInvalidQuantity {
		t.Fatalf("zero quantity: got %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p1", 2); domain.CodeOf(err) != domain.CodeInvalidQuantity {
		t.Fatalf("cumulative quantity above 3 must fail, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p2", 2); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("quantity above stock must fail, got %v", err)
	}
}

func TestAddItem_HiddenProduct(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, db, "categories", domain.Category{CategoryID: "c1", Name: "Hidden", Visible: false})
	seed(t, db, "products", domain.Product{ProductID: "p1", Name: "A", Price: 10, Stock: 5, Visible: true, CategoryRef: "c1"})
	seed(t, db, "products", domain.Product{ProductID: "p2", Name: "B", Price: 10, Stock: 5, Visible: false})

	for _, id := range []string{"p1", "p2"} {
		if _, err := svc.AddItem(context.Background(), "u1", id, 1); domain.CodeOf(err) != domain.CodeProductUnavailable {
			t.Fatalf("%s: expected product_unavailable, got %v", id, err)
		}
	}
	if _, err := svc.AddItem(context.Background(), "u1", "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected product_not_found, got %v", err)
	}
}

func TestUpdateRemoveClear(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, db, "products", domain.Product{ProductID: "p1", Name: "A", Price: 12.5, Stock: 5, Visible: true})
	seed(t, db, "products", domain.Product{ProductID: "p2", Name: "B", Price: 20, Stock: 5, Visible: true})

	if _, err := svc.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.AddItem(ctx, "u1", "p2", 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	c, err := svc.UpdateQuantity(ctx, "u1", "p1", 3)
	if err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if c.TotalItems != 4 || c.TotalPrice != 57.5 {
		t.Fatalf("totals after update = %d / %v", c.TotalItems, c.TotalPrice)
	}
	if _, err := svc.UpdateQuantity(ctx, "u1", "p1", 4); domain.CodeOf(err) != domain.CodeInvalidQuantity {
		t.Fatalf("expected invalid_quantity, got %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, "u1", "p9", 1); domain.CodeOf(err) != domain.CodeCartItemNotFound {
		t.Fatalf("expected cart_item_not_found, got %v", err)
	}

	c, err = svc.RemoveItem(ctx, "u1", "p2")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(c.Items) != 1 || c.TotalPrice != 37.5 {
		t.Fatalf("unexpected cart after remove %+v", c)
	}

	c, err = svc.Clear(ctx, "u1")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(c.Items) != 0 || c.TotalItems != 0 || c.TotalPrice != 0 {
		t.Fatalf("cart not cleared: %+v", c)
	}
}

func TestGet_EmptyCartIsNotPersisted(t *testing.T) {
	svc, db := newTestService(t)
	c, err := svc.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.UserID != "nobody" || len(c.Items) != 0 {
		t.Fatalf("unexpected empty cart %+v", c)
	}
	if db.Count("carts") != 0 {
		t.Fatalf("reading a cart must not create it")
	}
}
