package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

type Customer struct {
	Id      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Email   string         `json:"email,omitempty"`
	Phone   string         `json:"phone,omitempty"`
	Company string         `json:"company,omitempty"`
	Address string         `json:"address,omitempty"`
	Notes   string         `json:"notes,omitempty"`
	Status  CustomerStatus `json:"status,omitempty"`
	SoftDeleteMarker
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type NewCustomer struct {
	Name    string         `json:"name" binding:"required"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Company string         `json:"company"`
	Address string         `json:"address"`
	Notes   string         `json:"notes"`
	Status  CustomerStatus `json:"status"`
}

func (input *NewCustomer) Validate(ctx context.Context) error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	return nil
}
