package ports

import (
	"context"
	"time"

	"github.com/urlzip/urlzip/pkg/core/domain"
)

// LinkRepository is the Link Store contract used by the generator and the resolver
type LinkRepository interface {
	// InsertIfAbsent persists link, or returns domain.ErrCodeTaken when its short code exists.
	InsertIfAbsent(ctx context.Context, link *domain.ShortLink) error
	// GetByShortCode returns nil, nil when no link has the code.
	GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error)
	// IncrementClicks atomically adds one click and records visit, returning the updated
	// link. Returns nil, nil without mutating anything when no link has the code.
	IncrementClicks(ctx context.Context, code string, visit *domain.Visit) (*domain.ShortLink, error)

	ListByOwner(ctx context.Context, ownerID string, limit, offset int, search string) ([]domain.ShortLink, error)
	CountByOwner(ctx context.Context, ownerID string, search string) (int64, error)
	Dump(ctx context.Context) ([]domain.ShortLink, error) // For migration
}

// AnalyticsRepository holds the read-only aggregation queries plus QR code tracking
type AnalyticsRepository interface {
	Totals(ctx context.Context) (urls int64, clicks int64, err error)
	// MonthlyStats groups links created at or after since by creation month.
	MonthlyStats(ctx context.Context, since time.Time) ([]domain.MonthlyStats, error)
	// MonthlyClicks groups visits of one link at or after since by month.
	MonthlyClicks(ctx context.Context, linkID string, since time.Time) ([]domain.MonthlyClicks, error)

	RecordQRCode(ctx context.Context, event *domain.QRCodeEvent) error
	QRCodeStats(ctx context.Context) (*domain.QRCodeStats, error)
}

type ReportRepository interface {
	RecordReport(ctx context.Context, report *domain.AbuseReport) error
}

// Store is a complete persistence adapter
type Store interface {
	LinkRepository
	AnalyticsRepository
	ReportRepository
	Close() error
}

// CodeGenerator draws candidate short codes
type CodeGenerator interface {
	NewCode() (string, error)
}

// VisitInfo describes the request that triggered a resolution
type VisitInfo struct {
	Referer   string
	UserAgent string
	IP        string
}

// LinkService defines the business logic operations
type LinkService interface {
	Shorten(ctx context.Context, originalURL string, ownerID *string) (*domain.ShortLink, error)
	Resolve(ctx context.Context, code string, info VisitInfo) (*domain.ShortLink, error)
	GetLinkByShortCode(ctx context.Context, code string) (*domain.ShortLink, error)
	ListOwnerLinks(ctx context.Context, ownerID string, page, limit int, search string) ([]domain.ShortLink, int64, error)
	ShortURL(code string) string
}

type AnalyticsService interface {
	Overview(ctx context.Context) (*domain.Overview, error)
	LinkStats(ctx context.Context, input string) (*domain.LinkStats, error)
	TrackQRCode(ctx context.Context, ownerID, content string, wasShortened bool) error
}

type ReportService interface {
	Submit(ctx context.Context, url, reason, message string) (*domain.AbuseReport, error)
}
