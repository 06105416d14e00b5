package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

type ReportHandler struct {
	service ports.ReportService
	logger  *slog.Logger
}

func NewReportHandler(service ports.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: service, logger: logger}
}

type ReportRequest struct {
	URL     string `json:"url"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.service.Submit(r.Context(), req.URL, req.Reason, req.Message)
	if errors.Is(err, domain.ErrInvalidReport) {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "submit report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit report")
		return
	}

	h.logger.InfoContext(r.Context(), "abuse report received", "report_id", report.ID, "reason", report.Reason)
	writeJSON(w, http.StatusCreated, successResponse{Success: true})
}

// validationMessage drops the sentinel prefix, leaving the field message.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidReport.Error()+": ")
	if msg == "" {
		return "Invalid report"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
