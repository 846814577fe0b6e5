package api

import (
	"context"
	"strings"
	"time"

	"quitpath/internal/model"
)

const queryPaymentStatus = `
query PaymentStatus($id: ID!) {
	payment(id: $id) { id packageId amount currency status updatedAt }
}`

// PaymentStatus fetches the current state of a membership payment.
func (c *Client) PaymentStatus(ctx context.Context, token, paymentID string) (*model.Payment, error) {
	var resp struct {
		Payment *struct {
			ID        string    `json:"id"`
			PackageID string    `json:"packageId"`
			Amount    int64     `json:"amount"`
			Currency  string    `json:"currency"`
			Status    string    `json:"status"`
			UpdatedAt time.Time `json:"updatedAt"`
		} `json:"payment"`
	}

	vars := map[string]interface{}{"id": paymentID}
	if err := c.run(ctx, "payment", token, queryPaymentStatus, vars, &resp, model.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	if resp.Payment == nil {
		return nil, model.ErrPaymentNotFound
	}

	p := resp.Payment
	return &model.Payment{
		ID:        p.ID,
		PackageID: p.PackageID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    strings.ToLower(p.Status),
		UpdatedAt: p.UpdatedAt,
	}, nil
}
