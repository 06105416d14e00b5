package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/metrics"
	"github.com/urlzip/urlzip/pkg/ports"
)

const (
	DefaultMaxAttempts  = 10
	DefaultStoreTimeout = 5 * time.Second

	maxURLLength     = 2048
	maxPageSize      = 100
	collisionBackoff = time.Millisecond
)

var validate = validator.New()

type LinkService struct {
	repo         ports.LinkRepository
	gen          ports.CodeGenerator
	maxAttempts  int
	storeTimeout time.Duration
	shortURLBase string
	now          func() time.Time
}

type LinkOption func(*LinkService)

// WithMaxAttempts bounds how many candidate codes Shorten tries.
func WithMaxAttempts(n int) LinkOption {
	return func(s *LinkService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithStoreTimeout bounds every individual store call.
func WithStoreTimeout(d time.Duration) LinkOption {
	return func(s *LinkService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func WithShortURLBase(base string) LinkOption {
	return func(s *LinkService) {
		s.shortURLBase = strings.TrimRight(base, "/")
	}
}

func WithClock(now func() time.Time) LinkOption {
	return func(s *LinkService) {
		s.now = now
	}
}

func NewLinkService(repo ports.LinkRepository, gen ports.CodeGenerator, opts ...LinkOption) *LinkService {
	s := &LinkService{
		repo:         repo,
		gen:          gen,
		maxAttempts:  DefaultMaxAttempts,
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shorten validates originalURL and persists it under a freshly generated code.
// Uniqueness is decided by the store at insert time; a collision draws a new
// candidate until the attempt budget runs out.
func (s *LinkService) Shorten(ctx context.Context, originalURL string, ownerID *string) (*domain.ShortLink, error) {
	dest, err := validateURL(originalURL)
	if err != nil {
		return nil, err
	}

	var link *domain.ShortLink
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(collisionBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := s.gen.NewCode()
		if err != nil {
			return err
		}
		candidate := &domain.ShortLink{
			ID:          uuid.NewString(),
			ShortCode:   code,
			OriginalURL: dest,
			OwnerID:     ownerID,
			CreatedAt:   s.now().UTC(),
		}

		storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
		if err := s.repo.InsertIfAbsent(storeCtx, candidate); err != nil {
			if errors.Is(err, domain.ErrCodeTaken) {
				metrics.CodeCollisions.Inc()
				return retry.RetryableError(err)
			}
			return domain.StoreError(err)
		}
		link = candidate
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCodeTaken):
		return nil, domain.ErrGenerationExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, domain.StoreError(err)
	default:
		return nil, err
	}

	metrics.LinksCreated.Inc()
	return link, nil
}

// Resolve adds one click to the link and returns it with its updated count.
func (s *LinkService) Resolve(ctx context.Context, code string, info ports.VisitInfo) (*domain.ShortLink, error) {
	if !isShortCode(code) {
		metrics.Resolutions.WithLabelValues(metrics.ResultNotFound).Inc()
		return nil, domain.ErrNotFound
	}

	visit := &domain.Visit{
		Referer:   info.Referer,
		UserAgent: info.UserAgent,
		IPHash:    hashIP(info.IP),
		CreatedAt: s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	link, err := s.repo.IncrementClicks(ctx, code, visit)
	if err != nil {
		metrics.Resolutions.WithLabelValues(metrics.ResultError).Inc()
		return nil, domain.StoreError(err)
	}
	if link == nil {
		metrics.Resolutions.WithLabelValues(metrics.ResultNotFound).Inc()
		return nil, domain.ErrNotFound
	}
	metrics.Resolutions.WithLabelValues(metrics.ResultFound).Inc()
	return link, nil
}

// GetLinkByShortCode looks a link up without counting a click.
func (s *LinkService) GetLinkByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	if !isShortCode(code) {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	link, err := s.repo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *LinkService) ListOwnerLinks(ctx context.Context, ownerID string, page, limit int, search string) ([]domain.ShortLink, int64, error) {
	if ownerID == "" {
		return nil, 0, domain.ErrUnauthenticated
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit
	search = strings.TrimSpace(search)

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	links, err := s.repo.ListByOwner(ctx, ownerID, limit, offset, search)
	if err != nil {
		return nil, 0, domain.StoreError(err)
	}

	count, err := s.repo.CountByOwner(ctx, ownerID, search)
	if err != nil {
		return nil, 0, domain.StoreError(err)
	}

	return links, count, nil
}

// ShortURL builds the public short URL for code.
func (s *LinkService) ShortURL(code string) string {
	return s.shortURLBase + "/" + code
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrURLRequired
	}
	if len(raw) > maxURLLength || validate.Var(raw, "url") != nil {
		return "", domain.ErrInvalidURL
	}
	// The validator accepts opaque forms like mailto:; a destination needs a host.
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", domain.ErrInvalidURL
	}
	return raw, nil
}

func hashIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])
}

var _ ports.LinkService = (*LinkService)(nil)
