package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
	"github.com/imrishuroy/go-storefront-orderflow/internal/money"
)

// ApplyCredit appends a completed credit to w and raises its balance. The caller persists w.
func ApplyCredit(w *domain.Wallet, amount float64, description string, ref domain.Reference, at time.Time) domain.WalletTransaction {
	txn := domain.WalletTransaction{
		TransactionID: uuid.NewString(),
		Type:          domain.TxnCredit,
		Amount:        money.Round2(amount),
		Description:   description,
		Status:        domain.TxnCompleted,
		Reference:     ref,
		Date:          at.UTC(),
	}
	w.Transactions = append(w.Transactions, txn)
	w.Balance = money.Sum(w.Balance, txn.Amount)
	return txn
}

// LedgerBalance is the balance implied by the completed transactions.
func LedgerBalance(txns []domain.WalletTransaction) float64 {
	var credits, debits []float64
	for _, t := range txns {
		if t.Status != domain.TxnCompleted {
			continue
		}
		switch t.Type {
		case domain.TxnCredit:
			credits = append(credits, t.Amount)
		case domain.TxnDebit:
			debits = append(debits, t.Amount)
		}
	}
	return money.Sub(money.Sum(credits...), money.Sum(debits...))
}
