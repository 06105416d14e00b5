package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

const (
	actionOverview    = "overview"
	actionURL         = "url"
	actionTrackQRCode = "track-qr-code"
)

type AnalyticsHandler struct {
	service ports.AnalyticsService
	logger  *slog.Logger
}

func NewAnalyticsHandler(service ports.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, logger: logger}
}

// AnalyticsRequest is one envelope for every action; unused fields are ignored.
type AnalyticsRequest struct {
	Action       string `json:"action"`
	ShortCode    string `json:"shortCode,omitempty"`
	Content      string `json:"content,omitempty"`
	WasShortened bool   `json:"wasShortened,omitempty"`
}

func (h *AnalyticsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Action {
	case actionOverview:
		h.overview(w, r)
	case actionURL:
		h.linkStats(w, r, req.ShortCode)
	case actionTrackQRCode:
		h.trackQRCode(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h *AnalyticsHandler) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "analytics overview failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *AnalyticsHandler) linkStats(w http.ResponseWriter, r *http.Request, input string) {
	if strings.TrimSpace(input) == "" {
		writeError(w, http.StatusBadRequest, "Short code is required")
		return
	}

	stats, err := h.service.LinkStats(r.Context(), input)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "URL not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "analytics url stats failed", "input", input, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch URL")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AnalyticsHandler) trackQRCode(w http.ResponseWriter, r *http.Request, req AnalyticsRequest) {
	owner, _ := OwnerFromContext(r.Context())

	err := h.service.TrackQRCode(r.Context(), owner, req.Content, req.WasShortened)
	if errors.Is(err, domain.ErrUnauthenticated) {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "track qr code failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to track QR code generation")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
