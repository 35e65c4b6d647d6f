// Package wallet keeps each user's balance and append-only ledger.
package wallet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
	"github.com/imrishuroy/go-storefront-orderflow/internal/store"
)

// DefaultPageSize is used when a history request does not name a limit.
const DefaultPageSize = 10

// MaxPageSize bounds a history page.
const MaxPageSize = 100

// Service is the wallet ledger.
type Service struct {
	store         *store.Store
	log           *zap.Logger
	referralBonus float64
	nowFunc       func() time.Time
}

// NewService returns a wallet Service paying referralBonus per referral.
func NewService(s *store.Store, log *zap.Logger, referralBonus float64) *Service {
	return &Service{store: s, log: log, referralBonus: referralBonus, nowFunc: time.Now}
}

// Load returns the user's wallet, or a new zero wallet that is not yet saved.
func (s *Service) Load(ctx context.Context, userID string) (*domain.Wallet, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return &domain.Wallet{UserID: userID, Transactions: []domain.WalletTransaction{}}, nil
	}
	return w, nil
}

// Get returns the user's wallet, creating it with a zero balance on first read.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	w, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.Version > 0 {
		return w, nil
	}
	err = s.store.SaveWallet(ctx, w)
	if domain.CodeOf(err) == domain.CodeConcurrentModification {
		// created by a concurrent request
		return s.Load(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Credit adds a completed credit to the user's wallet.
func (s *Service) Credit(ctx context.Context, userID string, amount float64, description string, ref domain.Reference) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.NewError(domain.CodeInvalidAmount, "credit amount must be positive")
	}
	w, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	txn := ApplyCredit(w, amount, description, ref, s.nowFunc())
	if err := s.store.SaveWallet(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("wallet credited",
		zap.String("user_id", userID),
		zap.Float64("amount", txn.Amount),
		zap.String("reference_type", string(ref.Type)),
		zap.String("reference_id", ref.ID()),
	)
	return w, nil
}

// CreditReferral pays the referral bonus to referrerID for referredUserID's signup. Each referred
// user earns the bonus once.
func (s *Service) CreditReferral(ctx context.Context, referrerID, referredUserID string) (*domain.Wallet, error) {
	if referredUserID == "" || referrerID == referredUserID {
		return nil, domain.NewError(domain.CodeInvalidInput, "a referral needs two different users")
	}
	w, err := s.Load(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	for _, t := range w.Transactions {
		if t.Reference.Type == domain.RefReferral && t.Reference.UserID == referredUserID {
			return nil, domain.NewError(domain.CodeDuplicateReferral, "referral for %s already credited", referredUserID)
		}
	}
	ApplyCredit(w, s.referralBonus, "Referral bonus", domain.ReferralReference(referredUserID), s.nowFunc())
	if err := s.store.SaveWallet(ctx, w); err != nil {
		return nil, err
	}
	s.log.Info("referral bonus credited",
		zap.String("user_id", referrerID),
		zap.String("referred_user_id", referredUserID),
		zap.Float64("amount", s.referralBonus),
	)
	return w, nil
}

// Reconciliation reports a balance check against the ledger.
type Reconciliation struct {
	UserID        string  `json:"user_id"`
	StoredBalance float64 `json:"stored_balance"`
	LedgerBalance float64 `json:"ledger_balance"`
	Drift         float64 `json:"drift"`
	Repaired      bool    `json:"repaired"`
}

// Reconcile recomputes the balance from completed transactions and rewrites it if it drifted.
func (s *Service) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return &Reconciliation{UserID: userID}, nil
	}

	ledger := LedgerBalance(w.Transactions)
	r := &Reconciliation{
		UserID:        userID,
		StoredBalance: w.Balance,
		LedgerBalance: ledger,
		Drift:         money.Sub(w.Balance, ledger),
	}
	if money.Equal(w.Balance, ledger) {
		return r, nil
	}

	w.Balance = ledger
	if err := s.store.SaveWallet(ctx, w); err != nil {
		return nil, err
	}
	r.Repaired = true
	s.log.Warn("wallet balance drift repaired",
		zap.String("user_id", userID),
		zap.Float64("stored", r.StoredBalance),
		zap.Float64("ledger", ledger),
	)
	return r, nil
}

// HistoryEntry is a ledger entry with a description built at read time.
type HistoryEntry struct {
	domain.WalletTransaction
	Details string `json:"details"`
}

// HistoryPage is one page of a wallet's ledger, newest first.
type HistoryPage struct {
	Balance      float64        `json:"balance"`
	Transactions []HistoryEntry `json:"transactions"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	Total        int            `json:"total"`
	TotalPages   int            `json:"total_pages"`
}

// History returns page (1-based) of the user's ledger.
func (s *Service) History(ctx context.Context, userID string, page, limit int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	w, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns := make([]domain.WalletTransaction, len(w.Transactions))
	copy(txns, w.Transactions)
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.After(txns[j].Date) })

	out := &HistoryPage{
		Balance:      w.Balance,
		Transactions: []HistoryEntry{},
		Page:         page,
		Limit:        limit,
		Total:        len(txns),
		TotalPages:   (len(txns) + limit - 1) / limit,
	}
	start := (page - 1) * limit
	if start >= len(txns) {
		return out, nil
	}
	end := min(start+limit, len(txns))

	orders := map[string]*domain.Order{}
	for _, t := range txns[start:end] {
		out.Transactions = append(out.Transactions, HistoryEntry{
			WalletTransaction: t,
			Details:           s.describe(ctx, t, orders),
		})
	}
	return out, nil
}

// describe joins the referenced order into a readable line. Lookup failures fall back to the
// stored description.
func (s *Service) describe(ctx context.Context, t domain.WalletTransaction, cache map[string]*domain.Order) string {
	switch t.Reference.Type {
	case domain.RefReferral:
		return fmt.Sprintf("Referral bonus for inviting user %s", t.Reference.UserID)
	case domain.RefOrder, domain.RefReturnRequest:
	default:
		return t.Description
	}

	order, ok := cache[t.Reference.OrderID]
	if !ok {
		var err error
		order, err = s.store.GetOrder(ctx, t.Reference.OrderID)
		if err != nil {
			s.log.Warn("wallet history order lookup failed", zap.String("order_id", t.Reference.OrderID), zap.Error(err))
		}
		cache[t.Reference.OrderID] = order
	}
	if order == nil {
		return t.Description
	}

	if t.Reference.Type == domain.RefOrder {
		var names []string
		for _, p := range order.Products {
			if p.Cancelled {
				names = append(names, p.Name)
			}
		}
		return fmt.Sprintf("Refund for cancelled items of order #%s: %s", order.OrderNumber, strings.Join(names, ", "))
	}

	rr := order.ReturnRequest(t.Reference.RequestID)
	if rr == nil {
		return t.Description
	}
	names := make([]string, 0, len(rr.Items))
	for _, it := range rr.Items {
		if p := order.Product(it.ProductID); p != nil {
			names = append(names, p.Name)
		}
	}
	return fmt.Sprintf("Refund for return (%s) of order #%s: %s", rr.Status, order.OrderNumber, strings.Join(names, ", "))
}
