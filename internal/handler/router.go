// internal/handler/router.go
package handler

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the HTTP surface.
func NewRouter(campaigns *CampaignHandler, tracking *TrackingHandler, db *sql.DB) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/campaigns", campaigns.CreateCampaign)
	r.Get("/campaigns", campaigns.ListCampaigns)
	r.Get("/campaigns/{id}", campaigns.GetCampaign)
	r.Post("/campaigns/{id}/send", campaigns.SendCampaign)
	r.Post("/campaigns/{id}/test", campaigns.TestSendCampaign)
	r.Get("/campaigns/{id}/stats", campaigns.GetCampaignStats)
	r.Delete("/campaigns/{id}", campaigns.DeleteCampaign)

	r.Get("/tracking/open", tracking.Open)
	r.Get("/tracking/click", tracking.Click)
	r.Get("/unsubscribe", tracking.Unsubscribe)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	return r
}
