package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateType = "order"

	EventOrderPlaced        = "OrderPlaced"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type EventItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type OrderPlaced struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      uuid.UUID       `json:"userId"`
	Total       decimal.Decimal `json:"total"`
	Items       []EventItem     `json:"items"`
}

// OrderCancelled lists only the items whose stock was actually restored.
type OrderCancelled struct {
	OrderID     uuid.UUID   `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	UserID      uuid.UUID   `json:"userId"`
	Items       []EventItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID        uuid.UUID `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	Actor          uuid.UUID `json:"actor"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
}

func EventItems(items []LineItem) []EventItem {
	out := make([]EventItem, 0, len(items))
	for _, it := range items {
		out = append(out, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
