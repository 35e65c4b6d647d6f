package orders

import (
	"context"
	"testing"
	"time"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/metrics"
)

func (f *fixture) delivered(t *testing.T) *domain.Order {
	t.Helper()
	f.seedTwoProducts(t)
	o := f.place(t, placeInput("u1", twoLines()...))
	f.setStatus(t, o.OrderID, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered)
	return o
}

func (f *fixture) requestReturn(t *testing.T, orderID string, productIDs ...string) *domain.ReturnRequest {
	t.Helper()
	_, rr, err := f.svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: orderID, UserID: "u1", ProductIDs: productIDs, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("RequestReturn %v: %v", productIDs, err)
	}
	return rr
}

func TestReturn_FullApproval(t *testing.T) {
	f := newFixture(t)
	o := f.delivered(t)

	rr := f.requestReturn(t, o.OrderID, "pA", "pB")
	if rr.EstimatedRefund != 500 || rr.Status != domain.ReturnRequestRequested || len(rr.Items) != 2 {
		t.Fatalf("unexpected request %+v", rr)
	}
	if got := f.order(t, o.OrderID); got.Status != domain.StatusReturnRequested {
		t.Fatalf("status = %s, want return_requested", got.Status)
	}

	res, err := f.svc.ProcessReturn(context.Background(), ProcessReturnInput{
		OrderID: o.OrderID, RequestID: rr.RequestID, Approve: true, AdminNote: "ok",
	})
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if res.Refund != 500 || res.Order.Status != domain.StatusReturned {
		t.Fatalf("refund %v status %s", res.Refund, res.Order.Status)
	}

	stored := f.order(t, o.OrderID)
	for _, p := range stored.Products {
		if p.ReturnStatus != domain.ReturnApproved {
			t.Fatalf("line %s is %s", p.ProductID, p.ReturnStatus)
		}
	}
	processed := stored.ReturnRequest(rr.RequestID)
	if processed.Status != domain.ReturnRequestApproved || processed.ProcessedAt == nil || processed.RefundedAt == nil {
		t.Fatalf("request not approved: %+v", processed)
	}
	if got := f.walletBalance(t, "u1"); got != 500 {
		t.Fatalf("wallet = %v, want 500", got)
	}
	if f.stock(t, "pA") != 5 || f.stock(t, "pB") != 5 {
		t.Fatalf("stock not restored: %d %d", f.stock(t, "pA"), f.stock(t, "pB"))
	}
	if f.metrics.refunds[metrics.RefundReturn] != 500 {
		t.Fatalf("refund metric = %v", f.metrics.refunds[metrics.RefundReturn])
	}

	var w domain.Wallet
	if _, err := f.db.Get("wallets", "u1", &w); err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if len(w.Transactions) != 1 || w.Transactions[0].Reference != domain.ReturnRequestReference(o.OrderID, rr.RequestID) {
		t.Fatalf("unexpected ledger %+v", w.Transactions)
	}
}

func TestReturn_RejectLeavesStatus(t *testing.T) {
	f := newFixture(t)
	o := f.delivered(t)

	rr := f.requestReturn(t, o.OrderID, "pA")
	if got := f.order(t, o.OrderID); got.Status != domain.StatusPartiallyReturnRequested {
		t.Fatalf("status = %s, want partially_return_requested", got.Status)
	}

	res, err := f.svc.ProcessReturn(context.Background(), ProcessReturnInput{
		OrderID: o.OrderID, RequestID: rr.RequestID, Approve: false, AdminNote: "no damage found",
	})
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if res.Refund != 0 || res.Order.Status != domain.StatusPartiallyReturnRequested {
		t.Fatalf("refund %v status %s", res.Refund, res.Order.Status)
	}
	stored := f.order(t, o.OrderID)
	if stored.Product("pA").ReturnStatus != domain.ReturnRejected {
		t.Fatalf("line A = %s", stored.Product("pA").ReturnStatus)
	}
	if stored.ReturnRequest(rr.RequestID).Status != domain.ReturnRequestRejected {
		t.Fatalf("request not rejected")
	}
	if f.db.Count("wallets") != 0 || f.stock(t, "pA") != 4 {
		t.Fatalf("rejection must not refund or restock")
	}

	_, _, err = f.svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pA"}, Reason: "again",
	})
	if domain.CodeOf(err) != domain.CodeProductNotReturnable {
		t.Fatalf("re-returning a rejected line: got %v", err)
	}
}

func TestProcessReturn_TargetsNamedRequestOnly(t *testing.T) {
	f := newFixture(t)
	o := f.delivered(t)
	ctx := context.Background()

	first := f.requestReturn(t, o.OrderID, "pA")
	second := f.requestReturn(t, o.OrderID, "pB")
	if got := f.order(t, o.OrderID); got.Status != domain.StatusReturnRequested {
		t.Fatalf("status = %s, want return_requested", got.Status)
	}

	res, err := f.svc.ProcessReturn(ctx, ProcessReturnInput{OrderID: o.OrderID, RequestID: first.RequestID, Approve: true})
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if len(res.Processed) != 1 || res.Processed[0] != first.RequestID || res.Refund != 200 {
		t.Fatalf("processed %v refund %v", res.Processed, res.Refund)
	}
	stored := f.order(t, o.OrderID)
	if stored.ReturnRequest(second.RequestID).Status != domain.ReturnRequestRequested {
		t.Fatalf("second request must stay pending")
	}
	if stored.Status != domain.StatusPartiallyReturned {
		t.Fatalf("status = %s, want partially_returned", stored.Status)
	}

	_, err = f.svc.ProcessReturn(ctx, ProcessReturnInput{OrderID: o.OrderID, RequestID: first.RequestID, Approve: true})
	if domain.CodeOf(err) != domain.CodeReturnNotPending {
		t.Fatalf("reprocessing: got %v", err)
	}
	_, err = f.svc.ProcessReturn(ctx, ProcessReturnInput{OrderID: o.OrderID, RequestID: "missing", Approve: true})
	if domain.CodeOf(err) != domain.CodeReturnNotFound {
		t.Fatalf("unknown request: got %v", err)
	}
}

func TestProcessReturn_AllPending(t *testing.T) {
	f := newFixture(t)
	o := f.delivered(t)
	ctx := context.Background()

	first := f.requestReturn(t, o.OrderID, "pA")
	second := f.requestReturn(t, o.OrderID, "pB")

	res, err := f.svc.ProcessReturn(ctx, ProcessReturnInput{OrderID: o.OrderID, Approve: true, AllPending: true})
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if len(res.Processed) != 2 || res.Refund != 500 || res.Order.Status != domain.StatusReturned {
		t.Fatalf("processed %v refund %v status %s", res.Processed, res.Refund, res.Order.Status)
	}

	var w domain.Wallet
	if _, err := f.db.Get("wallets", "u1", &w); err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	if len(w.Transactions) != 2 ||
		w.Transactions[0].Reference.RequestID != first.RequestID ||
		w.Transactions[1].Reference.RequestID != second.RequestID {
		t.Fatalf("expected one ledger entry per request, got %+v", w.Transactions)
	}
	if f.walletBalance(t, "u1") != 500 {
		t.Fatalf("wallet = %v, want 500", f.walletBalance(t, "u1"))
	}

	_, err = f.svc.ProcessReturn(ctx, ProcessReturnInput{OrderID: o.OrderID, Approve: true, AllPending: true})
	if domain.CodeOf(err) != domain.CodeReturnNotPending {
		t.Fatalf("nothing pending: got %v", err)
	}
}

func TestRequestReturn_Rules(t *testing.T) {
	f := newFixture(t)
	o := f.delivered(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ReturnInput
		want domain.Code
	}{
		{"missing reason", ReturnInput{OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pA"}}, domain.CodeInvalidInput},
		{"no products", ReturnInput{OrderID: o.OrderID, UserID: "u1", Reason: "x"}, domain.CodeInvalidInput},
		{"unknown product", ReturnInput{OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pZ"}, Reason: "x"}, domain.CodeProductNotReturnable},
		{"duplicate product", ReturnInput{OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pA", "pA"}, Reason: "x"}, domain.CodeInvalidInput},
		{"other user", ReturnInput{OrderID: o.OrderID, UserID: "u2", ProductIDs: []string{"pA"}, Reason: "x"}, domain.CodeOrderNotFound},
	}
	for _, tc := range cases {
		if _, _, err := f.svc.RequestReturn(ctx, tc.in); domain.CodeOf(err) != tc.want {
			t.Fatalf("%s: code = %s, want %s", tc.name, domain.CodeOf(err), tc.want)
		}
	}
	if got := f.order(t, o.OrderID); len(got.ReturnRequests) != 0 {
		t.Fatalf("failed requests must not be recorded")
	}

	f.now = f.now.Add(8 * 24 * time.Hour)
	_, _, err := f.svc.RequestReturn(ctx, ReturnInput{OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pA"}, Reason: "x"})
	if domain.CodeOf(err) != domain.CodeReturnWindowClosed {
		t.Fatalf("expected return_window_closed, got %v", err)
	}
}

func TestRequestReturn_RequiresDelivery(t *testing.T) {
	f := newFixture(t)
	f.seedTwoProducts(t)
	o := f.place(t, placeInput("u1", twoLines()...))

	_, _, err := f.svc.RequestReturn(context.Background(), ReturnInput{
		OrderID: o.OrderID, UserID: "u1", ProductIDs: []string{"pA"}, Reason: "x",
	})
	if domain.CodeOf(err) != domain.CodeNotReturnable {
		t.Fatalf("expected order_not_returnable, got %v", err)
	}
}
