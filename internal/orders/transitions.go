package orders

import (
	"slices"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// disallowed maps a current status to the targets an admin may not move it to.
var disallowed = map[domain.OrderStatus][]domain.OrderStatus{
	domain.StatusReturnRequested: {
		domain.StatusDelivered,
	},
	domain.StatusPartiallyReturnRequested: {
		domain.StatusDelivered,
	},
	domain.StatusDelivered: {
		domain.StatusPlaced,
		domain.StatusProcessing,
		domain.StatusShipped,
		domain.StatusCancelled,
		domain.StatusReturned,
		domain.StatusReturnRequested,
		domain.StatusPartiallyReturned,
		domain.StatusPartiallyReturnRequested,
	},
	domain.StatusReturned: {
		domain.StatusPlaced,
		domain.StatusProcessing,
		domain.StatusShipped,
		domain.StatusCancelled,
		domain.StatusDelivered,
		domain.StatusReturnRequested,
	},
	domain.StatusPartiallyReturned: {
		domain.StatusPlaced,
		domain.StatusProcessing,
		domain.StatusShipped,
		domain.StatusCancelled,
		domain.StatusDelivered,
		domain.StatusReturned,
		domain.StatusReturnRequested,
		domain.StatusPartiallyReturnRequested,
	},
}

// derived statuses follow from line-level state and are only set by the cancel and return flows.
var derived = []domain.OrderStatus{
	domain.StatusPartiallyCancelled,
	domain.StatusReturnRequested,
	domain.StatusPartiallyReturnRequested,
	domain.StatusReturned,
	domain.StatusPartiallyReturned,
}

// CheckTransition reports whether an admin may move an order from one status to another.
func CheckTransition(from, to domain.OrderStatus) error {
	if !to.Valid() {
		return domain.NewError(domain.CodeInvalidInput, "unknown status %q", to)
	}
	switch {
	case from == to:
		return domain.NewError(domain.CodeInvalidStatusTransition, "order is already %s", from)
	case from.Terminal():
		return domain.NewError(domain.CodeInvalidStatusTransition, "order is %s and can no longer change", from)
	case slices.Contains(disallowed[from], to):
		return domain.NewError(domain.CodeInvalidStatusTransition, "cannot change order from %s to %s", from, to)
	case slices.Contains(derived, to):
		return domain.NewError(domain.CodeInvalidStatusTransition, "%s is set by the cancel and return flows", to)
	}
	return nil
}
