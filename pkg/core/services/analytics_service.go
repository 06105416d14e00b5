package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

// statsMonths is the width of every monthly series.
const statsMonths = 5

const monthLayout = "2006-01"

type AnalyticsService struct {
	links        ports.LinkRepository
	repo         ports.AnalyticsRepository
	storeTimeout time.Duration
	now          func() time.Time
}

func NewAnalyticsService(links ports.LinkRepository, repo ports.AnalyticsRepository, storeTimeout time.Duration) *AnalyticsService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &AnalyticsService{
		links:        links,
		repo:         repo,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

func (s *AnalyticsService) Overview(ctx context.Context) (*domain.Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	urls, clicks, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, domain.StoreError(err)
	}

	months := monthWindow(s.now().UTC(), statsMonths)
	rows, err := s.repo.MonthlyStats(ctx, months[0])
	if err != nil {
		return nil, domain.StoreError(err)
	}
	byMonth := make(map[string]domain.MonthlyStats, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}

	monthly := make([]domain.MonthlyStats, 0, len(months))
	for _, m := range months {
		key := m.Format(monthLayout)
		row := byMonth[key]
		row.Month = key
		monthly = append(monthly, row)
	}

	qr, err := s.repo.QRCodeStats(ctx)
	if err != nil {
		return nil, domain.StoreError(err)
	}

	return &domain.Overview{
		TotalUrls:    urls,
		TotalClicks:  clicks,
		MonthlyStats: monthly,
		QRCodeStats:  *qr,
	}, nil
}

// LinkStats accepts a bare short code or a short URL and returns its click series.
func (s *AnalyticsService) LinkStats(ctx context.Context, input string) (*domain.LinkStats, error) {
	code := ExtractShortCode(input)
	if !isShortCode(code) {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	link, err := s.links.GetByShortCode(ctx, code)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}

	now := s.now().UTC()
	months := monthWindow(now, monthsSince(link.CreatedAt.UTC(), now))
	rows, err := s.repo.MonthlyClicks(ctx, link.ID, months[0])
	if err != nil {
		return nil, domain.StoreError(err)
	}
	byMonth := make(map[string]int64, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.Clicks
	}

	series := make([]domain.MonthlyClicks, 0, len(months))
	for _, m := range months {
		key := m.Format(monthLayout)
		series = append(series, domain.MonthlyClicks{Month: key, Clicks: byMonth[key]})
	}

	return &domain.LinkStats{
		Clicks:        link.Clicks,
		MonthlyClicks: series,
		ShortCode:     link.ShortCode,
	}, nil
}

func (s *AnalyticsService) TrackQRCode(ctx context.Context, ownerID, content string, wasShortened bool) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	event := &domain.QRCodeEvent{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Content:      content,
		WasShortened: wasShortened,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.RecordQRCode(ctx, event); err != nil {
		return domain.StoreError(err)
	}
	return nil
}

// ExtractShortCode returns the first path segment of a short URL such as
// "urlzip.in/Abc123", or the trimmed input when it is not URL shaped.
func ExtractShortCode(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	raw := input
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return input
	}
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			return part
		}
	}
	return input
}

// monthWindow returns the first instant of the n calendar months ending with
// the month of now, oldest first.
func monthWindow(now time.Time, n int) []time.Time {
	if n < 1 {
		n = 1
	}
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = time.Date(now.Year(), now.Month()-time.Month(n-1-i), 1, 0, 0, 0, 0, time.UTC)
	}
	return months
}

// monthsSince counts calendar months from created through now inclusive,
// clamped to the stats window.
func monthsSince(created, now time.Time) int {
	n := (now.Year()-created.Year())*12 + int(now.Month()) - int(created.Month()) + 1
	if n < 1 {
		return 1
	}
	if n > statsMonths {
		return statsMonths
	}
	return n
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
