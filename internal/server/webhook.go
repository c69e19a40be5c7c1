package server

import (
	"context"
	"io"
	"net/http"

	"github.com/Jperi24/nsfw-platform/internal/billing"
	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 1 << 20
)

// Dispatcher is the piece of the billing pipeline the webhook endpoint
// talks to.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *billing.Event) error
}

// WebhookHandler terminates the payment-provider webhook. Verification runs
// against the raw request bytes before any JSON decoding. The response
// status is the acknowledgment protocol: 2xx consumes the delivery, 4xx
// rejects it permanently, 5xx requests redelivery.
type WebhookHandler struct {
	verifier   *billing.Verifier
	dispatcher Dispatcher
	errs       *errors.Handler
	logger     logger.Logger
}

func NewWebhookHandler(verifier *billing.Verifier, dispatcher Dispatcher, errs *errors.Handler, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		errs:       errs,
		logger:     log,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.errs.RespondError(w, errors.NewPayloadMalformedError("failed to read request body"))
		return
	}

	ev, err := h.verifier.Verify(payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.errs.RespondError(w, err)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		h.errs.RespondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
