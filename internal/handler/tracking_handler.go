// internal/handler/tracking_handler.go
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mantlz/campaigns-backend/internal/apperr"
	"github.com/mantlz/campaigns-backend/internal/repository"
	"github.com/mantlz/campaigns-backend/internal/service"
)

// transparentGIF is a 1x1 transparent pixel.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingHandler serves the open pixel, the click redirect and the
// unsubscribe link. Tracking responses never surface an internal error: the
// caller is an email client, not an operator.
type TrackingHandler struct {
	Tracking  *service.TrackingService
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.SubmissionRepositoryInterface
	Links     *service.LinkBuilder
	BaseURL   string
	Log       zerolog.Logger
}

// Open records the open and answers the pixel. Always 200, whatever happened.
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.URL.Query().Get("delivery_id")
	if deliveryID != "" {
		if err := h.Tracking.RecordOpen(r.Context(), deliveryID); err != nil {
			h.logIngestError("open", deliveryID, err)
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(transparentGIF)
}

// Click records the click then redirects to the wrapped target. A missing or
// non-http target falls back to the tracking base URL; the recipient always
// gets a redirect.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.URL.Query().Get("delivery_id")
	if deliveryID != "" {
		if err := h.Tracking.RecordClick(r.Context(), deliveryID); err != nil {
			h.logIngestError("click", deliveryID, err)
		}
	}

	target := r.URL.Query().Get("url")
	if !validRedirectTarget(target) {
		target = h.BaseURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Unsubscribe verifies the signed (campaign, address) pair and marks the
// matching submissions unsubscribed; the contact source excludes them from
// future selections.
func (h *TrackingHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.ParseInt(r.URL.Query().Get("campaign"), 10, 64)
	email := r.URL.Query().Get("email")
	sig := r.URL.Query().Get("sig")

	if err != nil || email == "" || !h.Links.VerifyUnsubscribe(campaignID, email, sig) {
		http.Error(w, "invalid unsubscribe link", http.StatusBadRequest)
		return
	}

	c, err := h.Campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		h.Log.Warn().Err(err).Int64("campaign_id", campaignID).Msg("unsubscribe for unknown campaign")
		http.Error(w, "invalid unsubscribe link", http.StatusBadRequest)
		return
	}

	if err := h.Contacts.Unsubscribe(r.Context(), c.FormID, email); err != nil {
		h.Log.Error().Err(err).Str("email", email).Msg("unsubscribe failed")
		http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("You have been unsubscribed.\n"))
}

func (h *TrackingHandler) logIngestError(event, deliveryID string, err error) {
	if errors.Is(err, apperr.ErrUnknownDelivery) {
		h.Log.Warn().Str("event", event).Str("delivery_id", deliveryID).Msg("tracking callback for unknown delivery")
		return
	}
	h.Log.Error().Err(err).Str("event", event).Str("delivery_id", deliveryID).Msg("tracking ingestion failed")
}

func validRedirectTarget(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
