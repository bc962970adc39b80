package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	Id          string          `json:"id,omitempty"`
	CustomerId  string          `json:"customerId"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VatRate     decimal.Decimal `json:"vatRate"`
	VatAmount   decimal.Decimal `json:"vatAmount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status,omitempty"`
	OrderDate   time.Time       `json:"order_date,omitempty"`
	ShipmentId  string          `json:"shipmentId,omitempty"`
	// QuoteId links back to the source quote when the order came from a
	// conversion. The reverse link on the quote is written second and
	// may lag (or, on partial failure, be missing).
	QuoteId string `json:"quoteId,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewOrder struct {
	CustomerId  string          `json:"customerId" binding:"required"`
	Items       []LineItem      `json:"items" binding:"required"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VatRate     decimal.Decimal `json:"vatRate"`
	VatAmount   decimal.Decimal `json:"vatAmount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	OrderDate   *time.Time      `json:"order_date"`
	QuoteId     string          `json:"quoteId"`
}

// RemainingQuantities derives, per product, how much of the order is
// still undelivered given the non-deleted shipments against it.
// Negative remainders clamp to zero (over-shipment).
func (o Order) RemainingQuantities(shipments []Shipment) map[string]decimal.Decimal {
	remaining := make(map[string]decimal.Decimal, len(o.Items))
	for _, item := range o.Items {
		remaining[item.ProductId] = item.Quantity
	}
	for _, s := range FilterDeleted(shipments) {
		if s.OrderId != o.Id {
			continue
		}
		for _, si := range s.Items {
			r, ok := remaining[si.ProductId]
			if !ok {
				continue
			}
			r = r.Sub(si.Quantity)
			if r.IsNegative() {
				r = decimal.Zero
			}
			remaining[si.ProductId] = r
		}
	}
	return remaining
}
