package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&shortURL{}, &visit{}, &qrCodeEvent{}, &report{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isShortCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == shortCodeConstraint
	}
	return false
}

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, link *domain.ShortLink) error {
	row := fromLink(link)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isShortCodeConflict(err) {
			return domain.ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	var row shortURL
	if err := r.db.WithContext(ctx).Where("short_code = ?", code).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toLink(), nil
}

var errNoLink = errors.New("no link with short code")

func (r *PostgresRepository) IncrementClicks(ctx context.Context, code string, v *domain.Visit) (*domain.ShortLink, error) {
	var row shortURL
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&shortURL{}).
			Where("short_code = ?", code).
			UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoLink
		}

		// The update holds the row lock until commit, so this read sees our increment.
		if err := tx.Where("short_code = ?", code).Take(&row).Error; err != nil {
			return err
		}

		if v == nil {
			return nil
		}
		vr := &visit{
			LinkID:    row.ID,
			Referer:   v.Referer,
			UserAgent: v.UserAgent,
			IPHash:    v.IPHash,
			CreatedAt: v.CreatedAt.UTC(),
		}
		if err := tx.Create(vr).Error; err != nil {
			return err
		}
		v.ID = vr.ID
		v.LinkID = row.ID
		return nil
	})
	if errors.Is(err, errNoLink) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toLink(), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) ownerQuery(ctx context.Context, ownerID, search string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&shortURL{}).Where("user_id = ?", ownerID)
	if search != "" {
		like := "%" + likeEscaper.Replace(search) + "%"
		q = q.Where(`(original_url ILIKE ? ESCAPE '\' OR short_code ILIKE ? ESCAPE '\')`, like, like)
	}
	return q
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int, search string) ([]domain.ShortLink, error) {
	var rows []shortURL
	err := r.ownerQuery(ctx, ownerID, search).
		Order("created_at DESC, id").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLinks(rows), nil
}

func (r *PostgresRepository) CountByOwner(ctx context.Context, ownerID string, search string) (int64, error) {
	var count int64
	err := r.ownerQuery(ctx, ownerID, search).Count(&count).Error
	return count, err
}

func (r *PostgresRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	var rows []shortURL
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLinks(rows), nil
}

func toLinks(rows []shortURL) []domain.ShortLink {
	links := make([]domain.ShortLink, 0, len(rows))
	for i := range rows {
		links = append(links, *rows[i].toLink())
	}
	return links
}

// --- Analytics ---

func (r *PostgresRepository) Totals(ctx context.Context) (int64, int64, error) {
	var urls, clicks int64
	err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*), COALESCE(SUM(clicks), 0) FROM short_urls`).
		Row().
		Scan(&urls, &clicks)
	return urls, clicks, err
}

func (r *PostgresRepository) MonthlyStats(ctx context.Context, since time.Time) ([]domain.MonthlyStats, error) {
	var stats []domain.MonthlyStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
		       COUNT(*) AS total_urls,
		       COALESCE(SUM(clicks), 0) AS total_clicks
		FROM short_urls
		WHERE created_at >= ?
		GROUP BY 1
		ORDER BY 1`, since.UTC()).
		Scan(&stats).Error
	return stats, err
}

func (r *PostgresRepository) MonthlyClicks(ctx context.Context, linkID string, since time.Time) ([]domain.MonthlyClicks, error) {
	var clicks []domain.MonthlyClicks
	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
		       COUNT(*) AS clicks
		FROM visits
		WHERE link_id = ? AND created_at >= ?
		GROUP BY 1
		ORDER BY 1`, linkID, since.UTC()).
		Scan(&clicks).Error
	return clicks, err
}

func (r *PostgresRepository) RecordQRCode(ctx context.Context, event *domain.QRCodeEvent) error {
	return r.db.WithContext(ctx).Create(&qrCodeEvent{
		ID:           event.ID,
		UserID:       event.OwnerID,
		Content:      event.Content,
		WasShortened: event.WasShortened,
		CreatedAt:    event.CreatedAt.UTC(),
	}).Error
}

func (r *PostgresRepository) QRCodeStats(ctx context.Context) (*domain.QRCodeStats, error) {
	var stats domain.QRCodeStats
	err := r.db.WithContext(ctx).
		Raw(`SELECT COUNT(*), COUNT(*) FILTER (WHERE was_shortened) FROM qr_code_analytics`).
		Row().
		Scan(&stats.TotalGenerated, &stats.Shortened)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Reports ---

func (r *PostgresRepository) RecordReport(ctx context.Context, rep *domain.AbuseReport) error {
	return r.db.WithContext(ctx).Create(&report{
		ID:        rep.ID,
		URL:       rep.URL,
		Reason:    rep.Reason,
		Message:   rep.Message,
		CreatedAt: rep.CreatedAt.UTC(),
	}).Error
}

var _ ports.Store = (*PostgresRepository)(nil)
