package dto

import (
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// IDsRequest addresses stored orders by id. An empty list is passed on
// and answered with a NO_ITEM operation status.
type IDsRequest struct {
	IDs []string `json:"ids" binding:"required,max=1000,dive,required,max=64"`
}

// OrdersRequest carries order documents
type OrdersRequest struct {
	Items []*ordering.Order `json:"items" binding:"required,max=1000"`
}

// DeleteRequest deletes the listed orders or, with collection set, all of them
type DeleteRequest struct {
	IDs        []string `json:"ids" binding:"required_without=Collection,omitempty,max=1000,dive,required,max=64"`
	Collection bool     `json:"collection"`
}

// ListOrdersRequest holds the query parameters of an order listing
type ListOrdersRequest struct {
	IDs        []string `form:"id" binding:"omitempty,max=1000,dive,max=64"`
	States     []string `form:"state" binding:"omitempty,dive,oneof=PENDING SUBMITTED CANCELLED WITHDRAWN COMPLETED INVALID"`
	ShopID     string   `form:"shop_id" binding:"omitempty,max=64"`
	CustomerID string   `form:"customer_id" binding:"omitempty,max=64"`
	UserID     string   `form:"user_id" binding:"omitempty,max=64"`
	Search     string   `form:"search" binding:"omitempty,max=100"`
	Page       int      `form:"page" binding:"omitempty,min=1"`
	PageSize   int      `form:"page_size" binding:"omitempty,min=1,max=1000"`
	OrderBy    string   `form:"order_by"`
	OrderDir   string   `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Filter converts the request into a repository filter
func (r ListOrdersRequest) Filter() ordering.OrderFilter {
	f := shared.DefaultFilter()
	if r.Page > 0 {
		f.Page = r.Page
	}
	if r.PageSize > 0 {
		f.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		f.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		f.OrderDir = r.OrderDir
	}
	f.Search = r.Search
	if r.UserID != "" {
		f.Filters["user_id"] = r.UserID
	}
	states := make([]ordering.State, 0, len(r.States))
	for _, s := range r.States {
		states = append(states, ordering.State(s))
	}
	return ordering.OrderFilter{
		Filter:     f,
		IDs:        r.IDs,
		States:     states,
		ShopID:     r.ShopID,
		CustomerID: r.CustomerID,
	}
}
