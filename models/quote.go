package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Id          string          `json:"id,omitempty"`
	CustomerId  string          `json:"customerId"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VatRate     decimal.Decimal `json:"vatRate"`
	VatAmount   decimal.Decimal `json:"vatAmount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      QuoteStatus     `json:"status,omitempty"`
	Date        time.Time       `json:"date,omitempty"`
	// OrderId is set exactly once, when the quote is approved through
	// conversion. An Approved quote is never re-approved.
	OrderId string `json:"orderId,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewQuote struct {
	CustomerId  string          `json:"customerId" binding:"required"`
	Items       []LineItem      `json:"items" binding:"required"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VatRate     decimal.Decimal `json:"vatRate"`
	VatAmount   decimal.Decimal `json:"vatAmount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      QuoteStatus     `json:"status"`
	Date        *time.Time      `json:"date"`
}
