package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest/middleware"
)

// Per-route limits. Card creation is deliberately tight: every create cuts a
// real card at the provider.
var (
	limitCheckout   = middleware.Limit{Name: "checkout", Requests: 30, Period: time.Minute}
	limitCardCreate = middleware.Limit{Name: "card-create", Requests: 10, Period: time.Hour}
	limitCardRead   = middleware.Limit{Name: "card-read", Requests: 60, Period: time.Minute}
	limitCardList   = middleware.Limit{Name: "card-list", Requests: 30, Period: time.Minute}
	limitCardMutate = middleware.Limit{Name: "card-mutate", Requests: 30, Period: time.Minute}
	limitFXRead     = middleware.Limit{Name: "fx-read", Requests: 60, Period: time.Minute}
	limitFXConvert  = middleware.Limit{Name: "fx-convert", Requests: 30, Period: time.Minute}
)

// NewRouter wires middleware and routes. The webhook endpoint sits outside
// the auth group; its HMAC signature is its authentication.
func NewRouter(h *Handlers, counter middleware.RequestCounter, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/payoneer", h.PayoneerWebhook)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Auth(cfg.Auth.APIToken, logger))

		api.Route("/checkout", func(checkout chi.Router) {
			checkout.Use(middleware.RateLimit(counter, limitCheckout, logger))
			checkout.Post("/summary", h.OrderSummary)
			checkout.Post("/process", h.ProcessCheckout)
		})

		api.Route("/fx", func(fx chi.Router) {
			fx.With(middleware.RateLimit(counter, limitFXRead, logger)).
				Get("/balance", h.GetBalance)
			fx.With(middleware.RateLimit(counter, limitFXRead, logger)).
				Get("/rate", h.GetRate)
			fx.With(middleware.RateLimit(counter, limitFXConvert, logger)).
				Post("/convert", h.Convert)
			fx.With(middleware.RateLimit(counter, limitFXConvert, logger)).
				Post("/batch-convert", h.BatchConvert)
		})

		api.Route("/cards", func(cards chi.Router) {
			cards.With(middleware.RateLimit(counter, limitCardCreate, logger)).
				Post("/", h.CreateCard)
			cards.With(middleware.RateLimit(counter, limitCardList, logger)).
				Get("/", h.ListCards)

			cards.Route("/{cardID}", func(card chi.Router) {
				card.With(middleware.RateLimit(counter, limitCardRead, logger)).
					Get("/", h.GetCard)
				card.With(middleware.RateLimit(counter, limitCardMutate, logger)).
					Post("/cancel", h.CancelCard)
				card.With(middleware.RateLimit(counter, limitCardRead, logger)).
					Get("/transactions", h.GetCardTransactions)
				card.With(middleware.RateLimit(counter, limitCardRead, logger)).
					Get("/stats", h.GetCardStats)
			})
		})
	})

	return r
}
