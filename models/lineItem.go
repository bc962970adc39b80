package models

import "github.com/shopspring/decimal"

// LineItem is one priced product row on a quote or an order. Conversion
// copies these verbatim from quote to order.
type LineItem struct {
	ProductId   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}
