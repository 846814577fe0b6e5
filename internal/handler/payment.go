package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quitpath/internal/httputil"
	"quitpath/internal/model"
	"quitpath/internal/transport/http/middleware"
)

// PaymentService is implemented by *service.PaymentService.
type PaymentService interface {
	Status(ctx context.Context, token, paymentID string) (*model.Payment, error)
	Await(ctx context.Context, token, paymentID string) (*model.Payment, error)
}

type PaymentHandler struct {
	paymentService PaymentService
	log            *zap.Logger
}

func NewPaymentHandler(paymentService PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, log: log.Named("payment_handler")}
}

// Status handles GET /payments/:id
// With ?wait=true it polls until the payment settles; a payment still pending
// when polling gives up is returned with 202.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	paymentID := chi.URLParam(r, "id")

	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid wait parameter")
			return
		}
		wait = parsed
	}

	var (
		payment *model.Payment
		err     error
	)
	if wait {
		payment, err = h.paymentService.Await(r.Context(), s.Token, paymentID)
	} else {
		payment, err = h.paymentService.Status(r.Context(), s.Token, paymentID)
	}
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPaymentPending) && payment != nil:
			httputil.WriteJSON(w, http.StatusAccepted, payment)
		case errors.Is(err, model.ErrPaymentNotFound):
			httputil.WriteNotFound(w, "Payment not found")
		default:
			httputil.WriteUpstreamError(w, h.log.With(zap.String("payment", paymentID)), err, "Failed to get payment status")
		}
		return
	}

	status := http.StatusOK
	if !payment.IsTerminal() {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, payment)
}
