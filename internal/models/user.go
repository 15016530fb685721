package models

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPayAsYouGo Plan = "pay_as_you_go"
)

type User struct {
	UserID           uuid.UUID `json:"user_id" db:"user_id" validate:"omitempty"`
	Email            string    `json:"email" db:"email" validate:"required,email,lte=60"`
	Fullname         string    `json:"fullname" db:"fullname" validate:"omitempty,lte=60"`
	Plan             Plan      `json:"plan" db:"plan" validate:"required,oneof=free pay_as_you_go"`
	BillingAccountID string    `json:"-" db:"billing_account_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Metered reports whether conversions for this user are billed per unit.
func (u *User) Metered() bool {
	return u.Plan == PlanPayAsYouGo && u.BillingAccountID != ""
}
