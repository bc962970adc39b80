package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityDetails is the human-readable payload of one audit entry.
type ActivityDetails struct {
	Message    string           `json:"message"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	CustomerId string           `json:"customerId,omitempty"`
}

// ActivityLogEntry is append-only: entries are never updated or deleted,
// and ordering is by the server-assigned timestamp.
type ActivityLogEntry struct {
	Id        string          `json:"id,omitempty"`
	UserId    string          `json:"userId"`
	Action    ActivityAction  `json:"action"`
	Details   ActivityDetails `json:"details"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}
