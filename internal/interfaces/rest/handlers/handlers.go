// Package handlers holds the HTTP handlers for the public API.
package handlers

import (
	"log/slog"

	"github.com/ALI7-sys/CopIt/internal/application/services"
)

type Handlers struct {
	checkout *services.CheckoutService
	cards    *services.CardService
	fx       *services.FXService
	webhook  *services.WebhookService
	logger   *slog.Logger
}

func NewHandlers(
	checkout *services.CheckoutService,
	cards *services.CardService,
	fx *services.FXService,
	webhook *services.WebhookService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout: checkout,
		cards:    cards,
		fx:       fx,
		webhook:  webhook,
		logger:   logger,
	}
}
