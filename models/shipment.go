package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentItem is a shipped quantity of one product; partial quantities
// against the order's line items are allowed.
type ShipmentItem struct {
	ProductId string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type Shipment struct {
	Id           string         `json:"id,omitempty"`
	OrderId      string         `json:"orderId"`
	Items        []ShipmentItem `json:"items"`
	Status       ShipmentStatus `json:"status,omitempty"`
	DeliveryDate *time.Time     `json:"delivery_date,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewShipment struct {
	OrderId string         `json:"orderId" binding:"required"`
	Items   []ShipmentItem `json:"items" binding:"required"`
	Status  ShipmentStatus `json:"status"`
}
