package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	Id           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Code         string          `json:"code,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Currency     string          `json:"currency,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewProduct struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code"`
	// Price fields are accepted as raw values and coerced to decimal on
	// save; unparsable input becomes zero, never an error.
	CostPrice    any    `json:"cost_price"`
	SellingPrice any    `json:"selling_price"`
	Currency     string `json:"currency"`
}
