package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"quitpath/internal/model"
)

type PaymentAPI interface {
	PaymentStatus(ctx context.Context, token, paymentID string) (*model.Payment, error)
}

// PaymentService tracks membership purchases the user completes in an
// external checkout.
type PaymentService struct {
	api      PaymentAPI
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewPaymentService(api PaymentAPI, interval, timeout time.Duration, log *zap.Logger) *PaymentService {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PaymentService{api: api, interval: interval, timeout: timeout, log: log.Named("payments")}
}

func (s *PaymentService) Status(ctx context.Context, token, paymentID string) (*model.Payment, error) {
	return s.api.PaymentStatus(ctx, token, paymentID)
}

// Await polls the payment until it reaches a terminal status. Polling backs
// off from the configured interval. If the wait runs out first it returns the
// last payment seen together with model.ErrPaymentPending. Auth and not-found
// errors stop polling immediately; other errors are retried.
func (s *PaymentService) Await(ctx context.Context, token, paymentID string) (*model.Payment, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxInterval = 4 * s.interval
	b.MaxElapsedTime = s.timeout
	b.Multiplier = 1.5

	var (
		last      *model.Payment
		attempts  int
		permanent bool
	)
	errStillPending := errors.New("pending")

	op := func() error {
		attempts++
		p, err := s.api.PaymentStatus(ctx, token, paymentID)
		if err != nil {
			if errors.Is(err, model.ErrPaymentNotFound) ||
				errors.Is(err, model.ErrUnauthorized) ||
				errors.Is(err, model.ErrForbidden) {
				permanent = true
				return backoff.Permanent(err)
			}
			return err
		}
		last = p
		if p.IsTerminal() {
			return nil
		}
		return errStillPending
	}

	notify := func(err error, wait time.Duration) {
		s.log.Debug("payment not settled",
			zap.String("payment", paymentID),
			zap.Int("attempt", attempts),
			zap.Duration("next", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	switch {
	case err == nil:
		s.log.Info("payment settled",
			zap.String("payment", paymentID),
			zap.String("status", last.Status),
			zap.Int("attempts", attempts),
		)
		return last, nil
	case ctx.Err() != nil:
		return last, ctx.Err()
	case permanent:
		return last, err
	case errors.Is(err, errStillPending), last != nil:
		// Out of time, possibly after transient failures at the end.
		s.log.Info("payment still pending",
			zap.String("payment", paymentID),
			zap.Int("attempts", attempts),
			zap.NamedError("last_error", err),
		)
		return last, model.ErrPaymentPending
	}
	return nil, err
}
