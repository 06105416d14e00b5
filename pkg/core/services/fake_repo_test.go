package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/urlzip/urlzip/pkg/core/domain"
)

// memoryRepo is an in-process store honoring the repository contracts.
type memoryRepo struct {
	mu      sync.Mutex
	links   map[string]*domain.ShortLink
	visits  []domain.Visit
	qr      []domain.QRCodeEvent
	reports []domain.AbuseReport
	inserts int

	insertErr    error
	incrementErr error
	monthly      []domain.MonthlyStats
	monthlyClick []domain.MonthlyClicks
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{links: make(map[string]*domain.ShortLink)}
}

func (m *memoryRepo) InsertIfAbsent(_ context.Context, link *domain.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.links[link.ShortCode]; ok {
		return domain.ErrCodeTaken
	}
	cp := *link
	m.links[link.ShortCode] = &cp
	return nil
}

func (m *memoryRepo) GetByShortCode(_ context.Context, code string) (*domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *memoryRepo) IncrementClicks(_ context.Context, code string, visit *domain.Visit) (*domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return nil, m.incrementErr
	}
	l, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	l.Clicks++
	v := *visit
	v.LinkID = l.ID
	m.visits = append(m.visits, v)
	cp := *l
	return &cp, nil
}

func (m *memoryRepo) ownerLinks(ownerID, search string) []domain.ShortLink {
	var out []domain.ShortLink
	for _, l := range m.links {
		if l.OwnerID == nil || *l.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(l.OriginalURL, search) && !strings.Contains(l.ShortCode, search) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int, search string) ([]domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.ownerLinks(ownerID, search)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) CountByOwner(_ context.Context, ownerID string, search string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.ownerLinks(ownerID, search))), nil
}

func (m *memoryRepo) Dump(_ context.Context) ([]domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ShortLink
	for _, l := range m.links {
		out = append(out, *l)
	}
	return out, nil
}

func (m *memoryRepo) Totals(_ context.Context) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var clicks int64
	for _, l := range m.links {
		clicks += l.Clicks
	}
	return int64(len(m.links)), clicks, nil
}

func (m *memoryRepo) MonthlyStats(_ context.Context, _ time.Time) ([]domain.MonthlyStats, error) {
	return m.monthly, nil
}

func (m *memoryRepo) MonthlyClicks(_ context.Context, _ string, _ time.Time) ([]domain.MonthlyClicks, error) {
	return m.monthlyClick, nil
}

func (m *memoryRepo) RecordQRCode(_ context.Context, event *domain.QRCodeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qr = append(m.qr, *event)
	return nil
}

func (m *memoryRepo) QRCodeStats(_ context.Context) (*domain.QRCodeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.QRCodeStats{TotalGenerated: int64(len(m.qr))}
	for _, e := range m.qr {
		if e.WasShortened {
			stats.Shortened++
		}
	}
	return stats, nil
}

func (m *memoryRepo) RecordReport(_ context.Context, report *domain.AbuseReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *report)
	return nil
}

// sequenceGenerator replays codes, repeating the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) NewCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}
