package handlers

import (
	"io"
	"net/http"

	"github.com/ALI7-sys/CopIt/internal/application"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Provider-Signature"

// maxWebhookBody caps webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// PayoneerWebhook verifies and applies a payment status notification. The
// body is read raw because the signature covers the exact bytes sent.
func (h *Handlers) PayoneerWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rest.WriteError(w, application.NewPayloadError("Unreadable body"), h.logger)
		return
	}

	result, err := h.webhook.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, result)
}
