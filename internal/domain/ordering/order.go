package ordering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// State represents the lifecycle state of an order
type State string

const (
	StatePending   State = "PENDING"
	StateSubmitted State = "SUBMITTED"
	StateCancelled State = "CANCELLED"
	StateWithdrawn State = "WITHDRAWN"
	StateCompleted State = "COMPLETED"
	// StateInvalid only appears in reports, it is never persisted.
	StateInvalid State = "INVALID"
)

// IsValid checks if the state can be persisted
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateSubmitted, StateCancelled, StateWithdrawn, StateCompleted:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can transition to the target state
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StatePending:
		return target == StateSubmitted || target == StateCancelled || target == StateWithdrawn
	case StateSubmitted:
		return target == StateCompleted || target == StateCancelled || target == StateWithdrawn
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateCancelled || s == StateWithdrawn || s == StateCompleted
}

// NotificationState tracks the notification sent after a state change
type NotificationState string

const (
	NotificationNone NotificationState = ""
	NotificationSent NotificationState = "NOTIFIED"
)

// CustomerType decides whether taxes are levied
type CustomerType string

const (
	CustomerTypePrivate      CustomerType = "PRIVATE"
	CustomerTypeCommercial   CustomerType = "COMMERCIAL"
	CustomerTypePublicSector CustomerType = "PUBLIC_SECTOR"
)

// IsPrivate reports whether the customer is a consumer
func (c CustomerType) IsPrivate() bool {
	return c == CustomerTypePrivate || c == ""
}

// Item is one order line. Amount is computed during evaluation.
type Item struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id,omitempty"`
	Quantity     int64           `json:"quantity"`
	ParentItemID string          `json:"parent_item_id,omitempty"`
	UnitPrice    *Price          `json:"unit_price,omitempty"`
	Amount       *pricing.Amount `json:"amount,omitempty"`
}

// ShippingAddress is an inline delivery address
type ShippingAddress struct {
	Address Address `json:"address"`
	Contact Contact `json:"contact"`
}

// Contact is the recipient of a delivery or invoice
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Order is the root aggregate
type Order struct {
	shared.BaseAggregateRoot
	Name                string            `json:"name,omitempty"`
	Description         string            `json:"description,omitempty"`
	ShopID              string            `json:"shop_id"`
	CustomerID          string            `json:"customer_id"`
	UserID              string            `json:"user_id,omitempty"`
	CustomerType        CustomerType      `json:"customer_type,omitempty"`
	State               State             `json:"order_state"`
	NotificationState   NotificationState `json:"notification_state,omitempty"`
	Items               []Item            `json:"items"`
	ShippingAddress     *ShippingAddress  `json:"shipping_address,omitempty"`
	BillingAddress      *ShippingAddress  `json:"billing_address,omitempty"`
	PackagingPreference string            `json:"packaging_preference,omitempty"`
	CustomerOrderNr     string            `json:"customer_order_nr,omitempty"`
	CustomerRemark      string            `json:"customer_remark,omitempty"`
	TotalAmounts        []pricing.Amount  `json:"total_amounts,omitempty"`
	SubmittedAt         *time.Time        `json:"submitted_at,omitempty"`
	Meta                map[string]string `json:"meta,omitempty"`
}

// NewOrder creates a pending order
func NewOrder(shopID, customerID string, items []Item) (*Order, error) {
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(uuid.NewString()),
		ShopID:            shopID,
		CustomerID:        customerID,
		State:             StatePending,
		Items:             items,
	}
	o.AssignItemIDs()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCreated, o))
	return o, nil
}

// Validate checks the fields every persisted order needs
func (o *Order) Validate() error {
	if o.ShopID == "" {
		return shared.NewDomainError("INVALID_SHOP", "Shop ID cannot be empty")
	}
	if o.CustomerID == "" {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if o.State != "" && !o.State.IsValid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order state %s is not valid", o.State))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	for _, item := range o.Items {
		if item.ProductID == "" {
			return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
		}
		if item.Quantity <= 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
	}
	return nil
}

// AssignItemIDs gives every item without an id a fresh one
func (o *Order) AssignItemIDs() {
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.NewString()
		}
	}
}

// Submit transitions the order from PENDING to SUBMITTED
func (o *Order) Submit() error {
	if err := o.transition(StateSubmitted, EventTypeOrderSubmitted); err != nil {
		return err
	}
	now := time.Now()
	o.SubmittedAt = &now
	return nil
}

// Cancel transitions the order to CANCELLED
func (o *Order) Cancel() error {
	return o.transition(StateCancelled, EventTypeOrderCancelled)
}

// Withdraw transitions the order to WITHDRAWN
func (o *Order) Withdraw() error {
	return o.transition(StateWithdrawn, EventTypeOrderWithdrawn)
}

// Complete transitions the order from SUBMITTED to COMPLETED
func (o *Order) Complete() error {
	return o.transition(StateCompleted, EventTypeOrderCompleted)
}

// MarkNotified records that the notification for the current state was sent
func (o *Order) MarkNotified() {
	o.NotificationState = NotificationSent
	o.Touch()
}

// CanModify reports whether items and addresses may still change
func (o *Order) CanModify() bool {
	return o.State == StatePending
}

// Modify replaces the editable fields with those of patch. Only pending
// orders can be modified.
func (o *Order) Modify(patch *Order) error {
	if !o.CanModify() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Order %s is %s and can no longer be modified", o.ID, o.State))
	}
	o.Name = patch.Name
	o.Description = patch.Description
	o.ShopID = patch.ShopID
	o.CustomerID = patch.CustomerID
	o.UserID = patch.UserID
	o.Items = patch.Items
	o.ShippingAddress = patch.ShippingAddress
	o.BillingAddress = patch.BillingAddress
	o.PackagingPreference = patch.PackagingPreference
	o.CustomerOrderNr = patch.CustomerOrderNr
	o.CustomerRemark = patch.CustomerRemark
	o.Meta = patch.Meta
	o.TotalAmounts = nil
	o.AssignItemIDs()
	if err := o.Validate(); err != nil {
		return err
	}
	o.Touch()
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderModified, o))
	return nil
}

// ApplyPricing stores computed item amounts and order totals
func (o *Order) ApplyPricing(items []Item, totals []pricing.Amount) {
	o.Items = items
	o.TotalAmounts = totals
}

// ProductIDs returns the product ids referenced by the items
func (o *Order) ProductIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func (o *Order) transition(target State, eventType string) error {
	if !o.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move order %s from %s to %s", o.ID, o.State, target))
	}
	o.State = target
	o.NotificationState = NotificationNone
	o.Touch()
	o.AddDomainEvent(NewOrderEvent(eventType, o))
	return nil
}
