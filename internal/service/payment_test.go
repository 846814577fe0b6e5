package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quitpath/internal/model"
)

// scriptedPaymentAPI returns the scripted results in order and repeats the last.
type scriptedPaymentAPI struct {
	mu    sync.Mutex
	steps []func() (*model.Payment, error)
	calls int
}

func (m *scriptedPaymentAPI) PaymentStatus(ctx context.Context, token, paymentID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := min(m.calls, len(m.steps)-1)
	m.calls++
	return m.steps[i]()
}

func status(s string) func() (*model.Payment, error) {
	return func() (*model.Payment, error) {
		return &model.Payment{ID: "pay1", Status: s}, nil
	}
}

func failing(err error) func() (*model.Payment, error) {
	return func() (*model.Payment, error) { return nil, err }
}

func newPaymentService(api PaymentAPI, timeout time.Duration) *PaymentService {
	return NewPaymentService(api, 5*time.Millisecond, timeout, zap.NewNop())
}

func TestPaymentService_Await_Paid(t *testing.T) {
	api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){
		status(model.PaymentStatusPending),
		failing(errors.New("502 from gateway")),
		status(model.PaymentStatusPending),
		status(model.PaymentStatusPaid),
	}}

	p, err := newPaymentService(api, time.Second).Await(context.Background(), "tok", "pay1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, p.Status)
	assert.Equal(t, 4, api.calls)
}

func TestPaymentService_Await_Failed(t *testing.T) {
	api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){status(model.PaymentStatusFailed)}}

	p, err := newPaymentService(api, time.Second).Await(context.Background(), "tok", "pay1")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, p.Status)
	assert.Equal(t, 1, api.calls)
}

func TestPaymentService_Await_Timeout(t *testing.T) {
	api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){status(model.PaymentStatusPending)}}

	p, err := newPaymentService(api, 50*time.Millisecond).Await(context.Background(), "tok", "pay1")
	assert.ErrorIs(t, err, model.ErrPaymentPending)
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.Greater(t, api.calls, 1)
}

func TestPaymentService_Await_PermanentErrors(t *testing.T) {
	for _, want := range []error{model.ErrPaymentNotFound, model.ErrUnauthorized, model.ErrForbidden} {
		t.Run(want.Error(), func(t *testing.T) {
			api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){failing(want)}}

			_, err := newPaymentService(api, time.Second).Await(context.Background(), "tok", "pay1")
			assert.ErrorIs(t, err, want)
			assert.Equal(t, 1, api.calls)
		})
	}
}

func TestPaymentService_Await_ContextCancelled(t *testing.T) {
	api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){status(model.PaymentStatusPending)}}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newPaymentService(api, time.Minute).Await(ctx, "tok", "pay1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPaymentService_Status(t *testing.T) {
	api := &scriptedPaymentAPI{steps: []func() (*model.Payment, error){status(model.PaymentStatusPending)}}

	p, err := newPaymentService(api, time.Second).Status(context.Background(), "tok", "pay1")
	require.NoError(t, err)
	assert.False(t, p.IsTerminal())
}
