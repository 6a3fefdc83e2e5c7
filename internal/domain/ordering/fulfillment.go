package ordering

import "github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"

// FulfillmentState is the carrier-side state of a fulfillment
type FulfillmentState string

const (
	FulfillmentStatePending   FulfillmentState = "PENDING"
	FulfillmentStateSubmitted FulfillmentState = "SUBMITTED"
	FulfillmentStateInvalid   FulfillmentState = "INVALID"
	FulfillmentStateFailed    FulfillmentState = "FAILED"
)

// FulfillmentItem is an order line packed into a parcel
type FulfillmentItem struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int64  `json:"quantity"`
}

// Parcel is one shipment unit
type Parcel struct {
	ID        string            `json:"id,omitempty"`
	ProductID string            `json:"product_id"`
	VariantID string            `json:"variant_id,omitempty"`
	Items     []FulfillmentItem `json:"items"`
	Package   *Package          `json:"package,omitempty"`
	Price     *Price            `json:"price,omitempty"`
	Amount    *pricing.Amount   `json:"amount,omitempty"`
}

// Packaging describes what is shipped from where to where
type Packaging struct {
	Parcels         []Parcel        `json:"parcels"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	SenderAddress   ShippingAddress `json:"sender"`
	ShippingAddress ShippingAddress `json:"recipient"`
	Notify          string          `json:"notify,omitempty"`
}

// Fulfillment is created by the saga for a submitted order
type Fulfillment struct {
	ID           string           `json:"id,omitempty"`
	Reference    Reference        `json:"reference"`
	ShopID       string           `json:"shop_id"`
	CustomerID   string           `json:"customer_id"`
	UserID       string           `json:"user_id,omitempty"`
	Packaging    Packaging        `json:"packaging"`
	State        FulfillmentState `json:"fulfillment_state,omitempty"`
	TotalAmounts []pricing.Amount `json:"total_amounts,omitempty"`
}

// FulfillmentSolution is one feasible way of shipping an order
type FulfillmentSolution struct {
	Parcels     []Parcel         `json:"parcels"`
	Amounts     []pricing.Amount `json:"amounts"`
	Compactness float64          `json:"compactness,omitempty"`
	Homogeneity float64          `json:"homogeneity,omitempty"`
}

// FulfillmentSolutionQuery asks for solutions for one order
type FulfillmentSolutionQuery struct {
	Reference   Reference         `json:"reference"`
	ShopID      string            `json:"shop_id"`
	CustomerID  string            `json:"customer_id"`
	Items       []FulfillmentItem `json:"items"`
	Sender      ShippingAddress   `json:"sender"`
	Recipient   ShippingAddress   `json:"recipient"`
	Preferences string            `json:"preferences,omitempty"`
}

// FulfillmentSolutionResult answers a FulfillmentSolutionQuery
type FulfillmentSolutionResult struct {
	Reference Reference             `json:"reference"`
	Solutions []FulfillmentSolution `json:"solutions"`
}
