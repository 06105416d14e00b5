package handler

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type HTTPHandler struct {
	service     ports.LinkService
	logger      *slog.Logger
	frontendURL string
}

func NewHTTPHandler(service ports.LinkService, logger *slog.Logger, frontendURL string) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger, frontendURL: frontendURL}
}

// ShortenRequest payload. UserID is accepted from older clients and ignored;
// ownership comes from the verified token only.
type ShortenRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId,omitempty"`
}

type ShortenResponse struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

type RedirectResponse struct {
	OriginalURL string `json:"originalUrl"`
}

type ListLinksResponse struct {
	Data  []domain.ShortLink `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var owner *string
	if id, ok := OwnerFromContext(r.Context()); ok {
		owner = &id
	}

	link, err := h.service.Shorten(r.Context(), req.URL, owner)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrURLRequired):
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	case errors.Is(err, domain.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "Invalid URL format")
		return
	case errors.Is(err, domain.ErrGenerationExhausted), errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.ErrorContext(r.Context(), "create short url failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create short URL")
		return
	default:
		h.logger.ErrorContext(r.Context(), "create short url: unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ShortenResponse{
		ShortURL:  h.service.ShortURL(link.ShortCode),
		ShortCode: link.ShortCode,
	})
}

// lookup resolves code for a navigation. HEAD requests come from previews and
// uptime checks, so they read the link without counting a click.
func (h *HTTPHandler) lookup(r *http.Request, code string) (*domain.ShortLink, error) {
	if r.Method == http.MethodHead {
		return h.service.GetLinkByShortCode(r.Context(), code)
	}
	return h.service.Resolve(r.Context(), code, visitInfo(r))
}

// Redirect to original URL, counting one click
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	link, err := h.lookup(r, code)
	if errors.Is(err, domain.ErrNotFound) {
		renderPage(w, http.StatusNotFound, pageData{
			Title:   "Short link not found",
			Message: "The link you followed does not exist.",
			HomeURL: h.frontendURL,
		})
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolve failed", "short_code", code, "error", err)
		renderPage(w, http.StatusInternalServerError, pageData{
			Title:   "Something went wrong",
			Message: "We could not open this link right now. Please try again.",
			HomeURL: h.frontendURL,
		})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

// RedirectJSON resolves like Redirect but answers with the destination.
func (h *HTTPHandler) RedirectJSON(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")

	link, err := h.lookup(r, code)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Short link not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "resolve failed", "short_code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch original URL")
		return
	}

	writeJSON(w, http.StatusOK, RedirectResponse{OriginalURL: link.OriginalURL})
}

// List the caller's links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	page, limit := pageParams(r)
	links, total, err := h.service.ListOwnerLinks(r.Context(), owner, page, limit, r.URL.Query().Get("search"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list links failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if links == nil {
		links = []domain.ShortLink{}
	}

	writeJSON(w, http.StatusOK, ListLinksResponse{Data: links, Total: total, Page: page, Limit: limit})
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func visitInfo(r *http.Request) ports.VisitInfo {
	return ports.VisitInfo{
		Referer:   r.Referer(),
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
