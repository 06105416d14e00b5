package postgres

import (
	"time"

	"github.com/urlzip/urlzip/pkg/core/domain"
)

const shortCodeConstraint = "uk_short_urls_short_code"

// shortURL is the persisted form of domain.ShortLink
type shortURL struct {
	ID          string    `gorm:"type:text;primaryKey"`
	ShortCode   string    `gorm:"size:32;not null;uniqueIndex:uk_short_urls_short_code"`
	OriginalURL string    `gorm:"type:text;not null"`
	Clicks      int64     `gorm:"not null;default:0;check:chk_short_urls_clicks,clicks >= 0"`
	UserID      *string   `gorm:"type:text;index:idx_short_urls_user_id"`
	CreatedAt   time.Time `gorm:"not null;index:idx_short_urls_created_at"`
}

func (shortURL) TableName() string { return "short_urls" }

func fromLink(l *domain.ShortLink) *shortURL {
	return &shortURL{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		Clicks:      l.Clicks,
		UserID:      l.OwnerID,
		CreatedAt:   l.CreatedAt.UTC(),
	}
}

func (r *shortURL) toLink() *domain.ShortLink {
	return &domain.ShortLink{
		ID:          r.ID,
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		Clicks:      r.Clicks,
		OwnerID:     r.UserID,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type visit struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	LinkID    string    `gorm:"type:text;not null;index:idx_visits_link_id_created_at,priority:1"`
	Referer   string    `gorm:"type:text"`
	UserAgent string    `gorm:"type:text"`
	IPHash    string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"not null;index:idx_visits_link_id_created_at,priority:2"`
}

func (visit) TableName() string { return "visits" }

type qrCodeEvent struct {
	ID           string    `gorm:"type:text;primaryKey"`
	UserID       string    `gorm:"type:text;not null;index:idx_qr_code_analytics_user_id"`
	Content      string    `gorm:"type:text;not null"`
	WasShortened bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (qrCodeEvent) TableName() string { return "qr_code_analytics" }

type report struct {
	ID        string    `gorm:"type:text;primaryKey"`
	URL       string    `gorm:"type:text;not null"`
	Reason    string    `gorm:"size:64;not null"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (report) TableName() string { return "reports" }
