package wallet

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/go-storefront-orderflow/internal/config"
	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store/dynamotest"
)

func newTestService(t *testing.T) (*Service, *dynamotest.DB) {
	t.Helper()
	tables := config.DefaultTables()
	db := dynamotest.New(store.KeySchema(tables))
	return NewService(store.New(db, tables), zaptest.NewLogger(t), 100), db
}

func TestGet_LazilyCreates(t *testing.T) {
	svc, db := newTestService(t)
	w, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w.Balance != 0 || w.Version != 1 {
		t.Fatalf("unexpected new wallet %+v", w)
	}
	if db.Count("wallets") != 1 {
		t.Fatalf("wallet not persisted")
	}
	again, err := svc.Get(context.Background(), "u1")
	if err != nil || again.Version != 1 {
		t.Fatalf("second read must not rewrite: %+v %v", again, err)
	}
}

func TestCredit_Conservation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	amounts := []float64{200, 0.1, 0.2, 49.99}
	for _, a := range amounts {
		if _, err := svc.Credit(ctx, "u1", a, "refund", domain.OrderReference("o1")); err != nil {
			t.Fatalf("Credit: %v", err)
		}
	}
	w, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w.Balance != 250.29 {
		t.Fatalf("balance = %v, want 250.29", w.Balance)
	}
	if LedgerBalance(w.Transactions) != w.Balance {
		t.Fatalf("balance %v differs from ledger %v", w.Balance, LedgerBalance(w.Transactions))
	}

	if _, err := svc.Credit(ctx, "u1", 0, "zero", domain.OrderReference("o1")); domain.CodeOf(err) != domain.CodeInvalidAmount {
		t.Fatalf("expected invalid_amount, got %v", err)
	}
}

func TestLedgerBalance_IgnoresNonCompleted(t *testing.T) {
	txns := []domain.WalletTransaction{
		{Type: domain.TxnCredit, Amount: 100, Status: domain.TxnCompleted},
		{Type: domain.TxnCredit, Amount: 40, Status: domain.TxnPending},
		{Type: domain.TxnDebit, Amount: 30, Status: domain.TxnCompleted},
		{Type: domain.TxnDebit, Amount: 5, Status: domain.TxnFailed},
	}
	if got := LedgerBalance(txns); got != 70 {
		t.Fatalf("ledger balance = %v, want 70", got)
	}
}

func TestCreditReferral(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.CreditReferral(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("CreditReferral: %v", err)
	}
	if w.Balance != 100 || w.Transactions[0].Reference != domain.ReferralReference("u2") {
		t.Fatalf("unexpected wallet %+v", w)
	}
	if _, err := svc.CreditReferral(ctx, "u1", "u2"); domain.CodeOf(err) != domain.CodeDuplicateReferral {
		t.Fatalf("expected duplicate_referral, got %v", err)
	}
	if _, err := svc.CreditReferral(ctx, "u1", "u1"); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("self referral must be rejected, got %v", err)
	}
}

func TestReconcile_RepairsDrift(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Credit(ctx, "u1", 120, "refund", domain.OrderReference("o1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	var w domain.Wallet
	if _, err := db.Get("wallets", "u1", &w); err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	w.Balance = 500
	if err := db.Put("wallets", w); err != nil {
		t.Fatalf("corrupt wallet: %v", err)
	}

	r, err := svc.Reconcile(ctx, "u1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !r.Repaired || r.Drift != 380 || r.LedgerBalance != 120 {
		t.Fatalf("unexpected reconciliation %+v", r)
	}
	again, err := svc.Reconcile(ctx, "u1")
	if err != nil || again.Repaired {
		t.Fatalf("second reconcile must be a no-op: %+v %v", again, err)
	}
}

func TestHistory_NewestFirstEnrichedAndPaged(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	order := domain.Order{
		OrderID:     "o1",
		OrderNumber: "ORD-1",
		UserID:      "u1",
		Products: []domain.OrderProduct{
			{ProductID: "p1", Name: "Lamp", Cancelled: true},
			{ProductID: "p2", Name: "Rug"},
		},
		ReturnRequests: []domain.ReturnRequest{{
			RequestID: "r1",
			Items:     []domain.ReturnItem{{ProductID: "p2", Quantity: 1}},
			Status:    domain.ReturnRequestApproved,
		}},
	}
	if err := db.Put("orders", order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	steps := []struct {
		amount float64
		ref    domain.Reference
	}{
		{10, domain.OrderReference("o1")},
		{20, domain.ReturnRequestReference("o1", "r1")},
		{30, domain.ReferralReference("u9")},
	}
	for i, st := range steps {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.nowFunc = func() time.Time { return at }
		if _, err := svc.Credit(ctx, "u1", st.amount, "stored", st.ref); err != nil {
			t.Fatalf("Credit: %v", err)
		}
	}

	page, err := svc.History(ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Transactions) != 2 {
		t.Fatalf("unexpected paging %+v", page)
	}
	if page.Transactions[0].Amount != 30 || !strings.Contains(page.Transactions[0].Details, "u9") {
		t.Fatalf("newest entry should be the referral, got %+v", page.Transactions[0])
	}
	if got := page.Transactions[1].Details; !strings.Contains(got, "approved") || !strings.Contains(got, "Rug") {
		t.Fatalf("return entry not enriched: %q", got)
	}

	page2, err := svc.History(ctx, "u1", 2, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(page2.Transactions) != 1 || !strings.Contains(page2.Transactions[0].Details, "Lamp") {
		t.Fatalf("order entry not enriched: %+v", page2.Transactions)
	}

	empty, err := svc.History(ctx, "u1", 5, 2)
	if err != nil || len(empty.Transactions) != 0 {
		t.Fatalf("out of range page should be empty: %+v %v", empty, err)
	}
}
