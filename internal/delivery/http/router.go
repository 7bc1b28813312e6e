// Package httpapi exposes code issuance and redemption to the game server
// plugin and the website.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 15 * time.Second

func NewRouter(h *Handler, apiKey string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.handleHealth)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(requireAPIKey(apiKey))
		api.Use(middleware.AllowContentType("application/json"))
		api.Post("/codes", h.handleIssueCode)
		api.Post("/links/redeem", h.handleRedeem)
		api.Get("/identities/{gameID}", h.handleGetIdentity)
	})

	return r
}
