package model

import (
	"errors"
	"time"
)

// Payment statuses reported by the remote API.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusExpired   = "expired"
	PaymentStatusCancelled = "cancelled"
)

// Payment is a membership purchase as tracked by the remote API.
type Payment struct {
	ID        string    `json:"id"`
	PackageID string    `json:"package_id,omitempty"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the status will not change any more.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled:
		return true
	}
	return false
}

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentPending  = errors.New("payment still pending")
)
