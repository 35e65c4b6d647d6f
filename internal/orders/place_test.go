package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/notify"
)

func TestPlace_CODDecrementsStockAndClearsCart(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 250, 10)
	f.seedProduct(t, "p2", 500, 4)
	f.seed(t, "carts", domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Quantity: 2}}, Version: 1})

	in := placeInput("u1",
		LineInput{ProductID: "p1", Quantity: 2, Price: 250},
		LineInput{ProductID: "p2", Quantity: 1, Price: 500},
	)
	res, err := f.svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	o := res.Order
	if o.Subtotal != 1000 || o.TotalAmount != 1050 || o.FinalAmount != 1050 || o.ShippingFee != 50 {
		t.Fatalf("unexpected totals %+v", o)
	}
	if o.Status != domain.StatusPlaced || o.PaymentStatus {
		t.Fatalf("unexpected status %s paid=%v", o.Status, o.PaymentStatus)
	}
	if !strings.HasPrefix(o.OrderNumber, "ORD-"+f.now.Format("20060102")+"-") {
		t.Fatalf("unexpected order number %q", o.OrderNumber)
	}
	if res.GatewayOrder != nil || f.gateway.calls != 0 {
		t.Fatalf("COD order must not create a gateway order")
	}
	if got := f.stock(t, "p1"); got != 8 {
		t.Fatalf("p1 stock = %d, want 8", got)
	}
	if got := f.stock(t, "p2"); got != 3 {
		t.Fatalf("p2 stock = %d, want 3", got)
	}
	if f.db.Count("carts") != 0 {
		t.Fatalf("cart should be removed at checkout")
	}

	stored := f.order(t, o.OrderID)
	if stored.Version != 1 || len(stored.Products) != 2 || len(stored.StatusTimeline) != 1 {
		t.Fatalf("unexpected stored order %+v", stored)
	}
	for _, p := range stored.Products {
		if p.ReturnStatus != domain.ReturnNone || p.Cancelled {
			t.Fatalf("unexpected line state %+v", p)
		}
	}
	if f.metrics.placed != 1 {
		t.Fatalf("expected one placed metric")
	}
	if got := f.notes.types(); len(got) != 1 || got[0] != notify.TypeOrderPlaced {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestPlace_SnapshotsServerPriceAndOffer(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 400, 5)
	f.seed(t, "offers", domain.Offer{
		OfferID: "off1", Name: "Lamp week", DiscountValue: 25, ProductIDs: []string{"p1"},
		StartDate: f.now.Add(-time.Hour), EndDate: f.now.Add(time.Hour), IsActive: true,
	})

	o := f.place(t, placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 300}))
	line := o.Products[0]
	if line.Price != 400 || line.DiscountedPrice != 300 {
		t.Fatalf("unexpected line prices %+v", line)
	}
	if line.Offer == nil || line.Offer.OfferID != "off1" {
		t.Fatalf("offer snapshot missing: %+v", line.Offer)
	}
}

func TestPlace_RejectsTamperedLinePrice(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 1000, 5)

	_, err := f.svc.Place(context.Background(), placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 1}))
	if domain.CodeOf(err) != domain.CodePriceMismatch || domain.KindOf(err) != domain.KindMismatch {
		t.Fatalf("expected price_mismatch, got %v", err)
	}
	if f.db.Count("orders") != 0 || f.stock(t, "p1") != 5 {
		t.Fatalf("rejected order must not write anything")
	}
	if f.db.TransactCalls != 0 {
		t.Fatalf("price check must run before the transaction")
	}
}

func TestPlace_RejectsListPriceWhileOfferActive(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 400, 5)
	f.seed(t, "offers", domain.Offer{
		OfferID: "off1", Name: "Lamp week", DiscountValue: 25, ProductIDs: []string{"p1"},
		StartDate: f.now.Add(-time.Hour), EndDate: f.now.Add(time.Hour), IsActive: true,
	})

	_, err := f.svc.Place(context.Background(), placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 400}))
	if domain.CodeOf(err) != domain.CodePriceMismatch {
		t.Fatalf("expected price_mismatch, got %v", err)
	}
}

func TestPlace_RejectsTooManyLines(t *testing.T) {
	f := newFixture(t)
	lines := make([]LineInput, domain.MaxOrderLines+1)
	for i := range lines {
		lines[i] = LineInput{ProductID: fmt.Sprintf("p%d", i), Quantity: 1, Price: 10}
	}

	_, err := f.svc.Place(context.Background(), placeInput("u1", lines...))
	if domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 10})
	in.Coupons = []string{"A", "B", "C", "D", "E", "F"}
	if _, err := f.svc.Place(context.Background(), in); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Fatalf("expected invalid_input for too many coupons, got %v", err)
	}
	if f.db.TransactCalls != 0 {
		t.Fatalf("no transaction may be attempted")
	}
}

func TestPlace_WithCoupon(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 500, 5)
	f.seed(t, "coupons", domain.Coupon{
		Code: "FLAT100", DiscountType: domain.DiscountFlat, DiscountValue: 100, MinPurchaseAmount: 500,
		StartDate: f.now.Add(-time.Hour), EndDate: f.now.Add(time.Hour), IsActive: true,
	})

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 2, Price: 500})
	in.Coupons = []string{"flat100"}
	in.DiscountAmount = 100
	in.FinalAmount = 950

	o := f.place(t, in)
	// amount invariant: final = subtotal + shipping - discount
	if !money.Equal(o.FinalAmount, money.Sub(money.Sum(o.Subtotal, o.ShippingFee), o.DiscountAmount)) {
		t.Fatalf("amount invariant broken: %+v", o)
	}
	if len(o.Coupons) != 1 || o.Coupons[0].DiscountAmount != 100 {
		t.Fatalf("unexpected coupon snapshot %+v", o.Coupons)
	}
	var c domain.Coupon
	if _, err := f.db.Get("coupons", "FLAT100", &c); err != nil || c.UsedCount != 1 {
		t.Fatalf("coupon usage = %d (%v), want 1", c.UsedCount, err)
	}
}

func TestPlace_Preconditions(t *testing.T) {
	base := func() PlaceInput {
		return placeInput("u1", LineInput{ProductID: "p1", Quantity: 2, Price: 100})
	}
	cases := []struct {
		name   string
		mutate func(*PlaceInput)
		want   domain.Code
	}{
		{"no products", func(in *PlaceInput) { in.Products = nil }, domain.CodeInvalidInput},
		{"quantity too high", func(in *PlaceInput) { in.Products[0].Quantity = 4 }, domain.CodeInvalidQuantity},
		{"missing address", func(in *PlaceInput) { in.Address.City = " " }, domain.CodeInvalidInput},
		{"bad payment method", func(in *PlaceInput) { in.PaymentMethod = "cheque" }, domain.CodeInvalidInput},
		{"unknown product", func(in *PlaceInput) { in.Products[0].ProductID = "nope" }, domain.CodeProductNotFound},
		{"insufficient stock", func(in *PlaceInput) { in.Products[0].Quantity = 3; in.Subtotal = 300 }, domain.CodeInsufficientStock},
		{"duplicate coupon", func(in *PlaceInput) { in.Coupons = []string{"SAVE", "save"} }, domain.CodeDuplicateCoupon},
		{"invalid coupon", func(in *PlaceInput) { in.Coupons = []string{"GONE"} }, domain.CodeInvalidCoupon},
		{"subtotal mismatch", func(in *PlaceInput) { in.Subtotal = 190 }, domain.CodeSubtotalMismatch},
		{"discount mismatch", func(in *PlaceInput) { in.DiscountAmount = 10 }, domain.CodeDiscountMismatch},
		{"total mismatch", func(in *PlaceInput) { in.TotalAmount = 200 }, domain.CodeTotalMismatch},
		{"final mismatch", func(in *PlaceInput) { in.FinalAmount = 249 }, domain.CodeFinalMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedProduct(t, "p1", 100, 2)
			in := base()
			tc.mutate(&in)
			_, err := f.svc.Place(context.Background(), in)
			if got := domain.CodeOf(err); got != tc.want {
				t.Fatalf("code = %s, want %s (err %v)", got, tc.want, err)
			}
			if f.db.Count("orders") != 0 {
				t.Fatalf("no order may be written")
			}
			if got := f.stock(t, "p1"); got != 2 {
				t.Fatalf("stock changed to %d", got)
			}
		})
	}
}

func TestPlace_MismatchIsReportedAsMismatchKind(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 2)
	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100})
	in.FinalAmount = 100
	_, err := f.svc.Place(context.Background(), in)
	if domain.KindOf(err) != domain.KindMismatch {
		t.Fatalf("kind = %s, want mismatch", domain.KindOf(err))
	}
}

func TestPlace_OnlinePayment(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 5)

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100})
	in.PaymentMethod = domain.PaymentRazorpay
	res, err := f.svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if res.GatewayOrder == nil || res.GatewayOrder.Amount != 15000 || res.GatewayOrder.Currency != "INR" {
		t.Fatalf("unexpected gateway order %+v", res.GatewayOrder)
	}
	if res.Order.GatewayOrderID != "gw_order_1" || res.Order.PaymentStatus {
		t.Fatalf("unexpected order payment state %+v", res.Order)
	}
}

func TestPlace_GatewayFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 5)
	f.gateway.err = errors.New("gateway timeout")

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100})
	in.PaymentMethod = domain.PaymentRazorpay
	_, err := f.svc.Place(context.Background(), in)
	if domain.CodeOf(err) != domain.CodeGatewayFailure {
		t.Fatalf("expected gateway failure, got %v", err)
	}
	if f.db.Count("orders") != 0 || f.stock(t, "p1") != 5 {
		t.Fatalf("failed gateway call must leave no order and untouched stock")
	}
}

func TestPlace_OnlinePaymentWithoutGateway(t *testing.T) {
	f := newFixture(t)
	f.svc.Gateway = nil
	f.seedProduct(t, "p1", 100, 5)

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100})
	in.PaymentMethod = domain.PaymentRazorpay
	if _, err := f.svc.Place(context.Background(), in); domain.CodeOf(err) != domain.CodeGatewayFailure {
		t.Fatalf("expected gateway failure, got %v", err)
	}
}

func TestPlace_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 5)

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 2, Price: 100})
	in.IdempotencyKey = "checkout-1"
	first, err := f.svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("first Place: %v", err)
	}
	second, err := f.svc.Place(context.Background(), in)
	if err != nil {
		t.Fatalf("replayed Place: %v", err)
	}
	if !second.Replayed || second.Order.OrderID != first.Order.OrderID {
		t.Fatalf("expected replay of %s, got %+v", first.Order.OrderID, second)
	}
	if f.db.Count("orders") != 1 || f.stock(t, "p1") != 3 {
		t.Fatalf("replay must not place a second order")
	}
	if f.metrics.placed != 1 {
		t.Fatalf("replay must not count as a placement")
	}
}

func TestPlace_IdempotencyKeyConflicts(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 5)

	in := placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100})
	in.IdempotencyKey = "checkout-1"
	f.place(t, in)

	other := in
	other.UserID = "u2"
	if _, err := f.svc.Place(context.Background(), other); domain.CodeOf(err) != domain.CodeIdempotencyConflict {
		t.Fatalf("key reused by another user: got %v", err)
	}

	changed := placeInput("u1", LineInput{ProductID: "p1", Quantity: 2, Price: 100})
	changed.IdempotencyKey = "checkout-1"
	if _, err := f.svc.Place(context.Background(), changed); domain.CodeOf(err) != domain.CodeIdempotencyConflict {
		t.Fatalf("key reused with a different body: got %v", err)
	}
	if f.db.Count("orders") != 1 {
		t.Fatalf("conflicting requests must not place orders")
	}
}

func TestPlace_TransactionFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100, 5)
	f.db.FailTransact = errors.New("service unavailable")

	_, err := f.svc.Place(context.Background(), placeInput("u1", LineInput{ProductID: "p1", Quantity: 1, Price: 100}))
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("kind = %s, want internal (err %v)", domain.KindOf(err), err)
	}
	if len(f.metrics.aborted) != 1 || f.metrics.aborted[0] != domain.CodeInternal {
		t.Fatalf("aborted metrics = %v", f.metrics.aborted)
	}
}
