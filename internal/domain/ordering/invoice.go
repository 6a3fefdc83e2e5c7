package ordering

import (
	"time"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
)

// PaymentState of an invoice
type PaymentState string

const (
	PaymentStateUnpaid PaymentState = "UNPAYED"
	PaymentStatePaid   PaymentState = "PAYED"
)

// InvoicePosition is one billed line
type InvoicePosition struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice *Price          `json:"unit_price,omitempty"`
	Amount    *pricing.Amount `json:"amount,omitempty"`
}

// InvoiceSection groups the positions of one order
type InvoiceSection struct {
	ID        string            `json:"id"`
	Positions []InvoicePosition `json:"positions"`
	Amounts   []pricing.Amount  `json:"amounts"`
}

// Document is a rendered copy of an invoice
type Document struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Invoice bills one or more orders of the same customer and shop
type Invoice struct {
	ID            string           `json:"id,omitempty"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	References    []Reference      `json:"references"`
	CustomerID    string           `json:"customer_id"`
	ShopID        string           `json:"shop_id"`
	UserID        string           `json:"user_id,omitempty"`
	Sender        ShippingAddress  `json:"sender"`
	Recipient     ShippingAddress  `json:"recipient"`
	Sections      []InvoiceSection `json:"sections"`
	TotalAmounts  []pricing.Amount `json:"total_amounts"`
	PaymentState  PaymentState     `json:"payment_state"`
	Documents     []Document       `json:"documents,omitempty"`
	Sent          bool             `json:"sent"`
	SentAt        *time.Time       `json:"sent_at,omitempty"`
}

// OrderIDs returns the ids of the orders the invoice bills
func (i Invoice) OrderIDs() []string {
	ids := make([]string, 0, len(i.References))
	for _, ref := range i.References {
		if ref.InstanceType == InstanceTypeOrder {
			ids = append(ids, ref.InstanceID)
		}
	}
	return ids
}
