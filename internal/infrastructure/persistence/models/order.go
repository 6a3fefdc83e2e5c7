package models

import (
	"time"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
)

// OrderModel is the persistence model of an order. Nested values that are
// only ever read together with the order are stored as JSON documents.
type OrderModel struct {
	AggregateModel
	Name                string                    `gorm:"type:varchar(200)"`
	Description         string                    `gorm:"type:text"`
	ShopID              string                    `gorm:"type:varchar(64);not null;index"`
	CustomerID          string                    `gorm:"type:varchar(64);not null;index"`
	UserID              string                    `gorm:"type:varchar(64)"`
	CustomerType        string                    `gorm:"type:varchar(32)"`
	OrderState          string                    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	NotificationState   string                    `gorm:"type:varchar(20)"`
	PackagingPreference string                    `gorm:"type:varchar(64)"`
	CustomerOrderNr     string                    `gorm:"type:varchar(100)"`
	CustomerRemark      string                    `gorm:"type:text"`
	ShippingAddress     *ordering.ShippingAddress `gorm:"serializer:json"`
	BillingAddress      *ordering.ShippingAddress `gorm:"serializer:json"`
	TotalAmounts        []pricing.Amount          `gorm:"serializer:json"`
	Meta                map[string]string         `gorm:"serializer:json"`
	SubmittedAt         *time.Time
	Items               []OrderItemModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line of an order
type OrderItemModel struct {
	ID           string          `gorm:"type:varchar(64);primaryKey"`
	OrderID      string          `gorm:"type:varchar(64);primaryKey"`
	Position     int             `gorm:"not null"`
	ProductID    string          `gorm:"type:varchar(64);not null;index"`
	VariantID    string          `gorm:"type:varchar(64)"`
	Quantity     int64           `gorm:"not null"`
	ParentItemID string          `gorm:"type:varchar(64)"`
	UnitPrice    *ordering.Price `gorm:"serializer:json"`
	Amount       *pricing.Amount `gorm:"serializer:json"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain order
func (m *OrderModel) ToDomain() *ordering.Order {
	o := &ordering.Order{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		Name:                m.Name,
		Description:         m.Description,
		ShopID:              m.ShopID,
		CustomerID:          m.CustomerID,
		UserID:              m.UserID,
		CustomerType:        ordering.CustomerType(m.CustomerType),
		State:               ordering.State(m.OrderState),
		NotificationState:   ordering.NotificationState(m.NotificationState),
		ShippingAddress:     m.ShippingAddress,
		BillingAddress:      m.BillingAddress,
		PackagingPreference: m.PackagingPreference,
		CustomerOrderNr:     m.CustomerOrderNr,
		CustomerRemark:      m.CustomerRemark,
		TotalAmounts:        m.TotalAmounts,
		SubmittedAt:         m.SubmittedAt,
		Meta:                m.Meta,
		Items:               make([]ordering.Item, len(m.Items)),
	}
	for _, item := range m.Items {
		if item.Position < 0 || item.Position >= len(o.Items) {
			continue
		}
		o.Items[item.Position] = ordering.Item{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			ParentItemID: item.ParentItemID,
			UnitPrice:    item.UnitPrice,
			Amount:       item.Amount,
		}
	}
	return o
}

// OrderModelFromDomain creates a persistence model from a domain order
func OrderModelFromDomain(o *ordering.Order) *OrderModel {
	m := &OrderModel{
		Name:                o.Name,
		Description:         o.Description,
		ShopID:              o.ShopID,
		CustomerID:          o.CustomerID,
		UserID:              o.UserID,
		CustomerType:        string(o.CustomerType),
		OrderState:          string(o.State),
		NotificationState:   string(o.NotificationState),
		PackagingPreference: o.PackagingPreference,
		CustomerOrderNr:     o.CustomerOrderNr,
		CustomerRemark:      o.CustomerRemark,
		ShippingAddress:     o.ShippingAddress,
		BillingAddress:      o.BillingAddress,
		TotalAmounts:        o.TotalAmounts,
		Meta:                o.Meta,
		SubmittedAt:         o.SubmittedAt,
		Items:               make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:           item.ID,
			OrderID:      o.ID,
			Position:     i,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			ParentItemID: item.ParentItemID,
			UnitPrice:    item.UnitPrice,
			Amount:       item.Amount,
		}
	}
	return m
}
