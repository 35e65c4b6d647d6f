package domain

// ReferenceType discriminates what a wallet transaction points at.
type ReferenceType string

const (
	RefNone          ReferenceType = ""
	RefOrder         ReferenceType = "order"
	RefReturnRequest ReferenceType = "return_request"
	RefReferral      ReferenceType = "referral"
)

// Reference is a tagged union: Type selects which of the id fields is meaningful.
//
//	RefOrder          OrderID
//	RefReturnRequest  OrderID + RequestID
//	RefReferral       UserID (the referred user)
type Reference struct {
	Type      ReferenceType `dynamodbav:"type,omitempty" json:"type,omitempty"`
	OrderID   string        `dynamodbav:"order_id,omitempty" json:"order_id,omitempty"`
	RequestID string        `dynamodbav:"request_id,omitempty" json:"request_id,omitempty"`
	UserID    string        `dynamodbav:"user_id,omitempty" json:"user_id,omitempty"`
}

// OrderReference points at a whole order.
func OrderReference(orderID string) Reference {
	return Reference{Type: RefOrder, OrderID: orderID}
}

// ReturnRequestReference points at one return request embedded in an order.
func ReturnRequestReference(orderID, requestID string) Reference {
	return Reference{Type: RefReturnRequest, OrderID: orderID, RequestID: requestID}
}

// ReferralReference points at the user whose signup earned the bonus.
func ReferralReference(referredUserID string) Reference {
	return Reference{Type: RefReferral, UserID: referredUserID}
}

// ID returns the primary identifier for the reference kind.
func (r Reference) ID() string {
	switch r.Type {
	case RefOrder, RefReturnRequest:
		return r.OrderID
	case RefReferral:
		return r.UserID
	default:
		return ""
	}
}
