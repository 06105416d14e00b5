package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/urlzip/urlzip/pkg/core/domain"
	"github.com/urlzip/urlzip/pkg/ports"
)

// timeLayout sorts lexicographically and is understood by strftime.
const timeLayout = "2006-01-02 15:04:05.000"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if isRemote(dbURL) {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// One writer at a time; concurrent requests queue on the pool instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if driverName == "sqlite" {
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func isRemote(dbURL string) bool {
	return strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://")
}

func migrate(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS short_urls (
		id TEXT PRIMARY KEY,
		short_code TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		clicks INTEGER NOT NULL DEFAULT 0 CHECK (clicks >= 0),
		user_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_short_urls_created_at ON short_urls(created_at);
	CREATE INDEX IF NOT EXISTS idx_short_urls_user_id ON short_urls(user_id);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id TEXT NOT NULL,
		referer TEXT,
		user_agent TEXT,
		ip_hash TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY(link_id) REFERENCES short_urls(id)
	);
	CREATE INDEX IF NOT EXISTS idx_visits_link_id ON visits(link_id, created_at);

	CREATE TABLE IF NOT EXISTS qr_code_analytics (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		was_shortened INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		reason TEXT NOT NULL,
		message TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

type scanner interface {
	Scan(dest ...any) error
}

const linkColumns = `id, short_code, original_url, clicks, user_id, created_at`

func scanLink(row scanner) (*domain.ShortLink, error) {
	var (
		l         domain.ShortLink
		ownerID   sql.NullString
		createdAt string
	)
	if err := row.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &l.Clicks, &ownerID, &createdAt); err != nil {
		return nil, err
	}
	if ownerID.Valid {
		l.OwnerID = &ownerID.String
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("short_urls %s: created_at: %w", l.ShortCode, err)
	}
	l.CreatedAt = t
	return &l, nil
}

func scanLinks(rows *sql.Rows) ([]domain.ShortLink, error) {
	defer rows.Close()

	var links []domain.ShortLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, link *domain.ShortLink) error {
	query := `INSERT INTO short_urls (id, short_code, original_url, clicks, user_id, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(short_code) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		link.ID, link.ShortCode, link.OriginalURL, link.Clicks, link.OwnerID, formatTime(link.CreatedAt))
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCodeTaken
	}
	return nil
}

func (r *SQLiteRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	query := `SELECT ` + linkColumns + ` FROM short_urls WHERE short_code = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *SQLiteRepository) IncrementClicks(ctx context.Context, code string, visit *domain.Visit) (*domain.ShortLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `UPDATE short_urls SET clicks = clicks + 1 WHERE short_code = ? RETURNING ` + linkColumns
	link, err := scanLink(tx.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if visit != nil {
		queryVisit := `INSERT INTO visits (link_id, referer, user_agent, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, queryVisit,
			link.ID, visit.Referer, visit.UserAgent, visit.IPHash, formatTime(visit.CreatedAt))
		if err != nil {
			return nil, err
		}
		if id, err := res.LastInsertId(); err == nil {
			visit.ID = id
		}
		visit.LinkID = link.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return link, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches search literally anywhere in the column.
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

func ownerFilter(ownerID, search string) (string, []any) {
	where := ` WHERE user_id = ?`
	args := []any{ownerID}
	if search != "" {
		where += ` AND (original_url LIKE ? ESCAPE '\' OR short_code LIKE ? ESCAPE '\')`
		like := containsPattern(search)
		args = append(args, like, like)
	}
	return where, args
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int, search string) ([]domain.ShortLink, error) {
	where, args := ownerFilter(ownerID, search)
	query := `SELECT ` + linkColumns + ` FROM short_urls` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

func (r *SQLiteRepository) CountByOwner(ctx context.Context, ownerID string, search string) (int64, error) {
	where, args := ownerFilter(ownerID, search)

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_urls`+where, args...).Scan(&count)
	return count, err
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM short_urls ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return scanLinks(rows)
}

// --- Analytics ---

func (r *SQLiteRepository) Totals(ctx context.Context) (int64, int64, error) {
	var urls, clicks int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(clicks), 0) FROM short_urls`).Scan(&urls, &clicks)
	return urls, clicks, err
}

func (r *SQLiteRepository) MonthlyStats(ctx context.Context, since time.Time) ([]domain.MonthlyStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', created_at) AS month, COUNT(*), COALESCE(SUM(clicks), 0)
		FROM short_urls
		WHERE created_at >= ?
		GROUP BY month
		ORDER BY month`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.MonthlyStats
	for rows.Next() {
		var s domain.MonthlyStats
		if err := rows.Scan(&s.Month, &s.TotalUrls, &s.TotalClicks); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *SQLiteRepository) MonthlyClicks(ctx context.Context, linkID string, since time.Time) ([]domain.MonthlyClicks, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', created_at) AS month, COUNT(*)
		FROM visits
		WHERE link_id = ? AND created_at >= ?
		GROUP BY month
		ORDER BY month`, linkID, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []domain.MonthlyClicks
	for rows.Next() {
		var c domain.MonthlyClicks
		if err := rows.Scan(&c.Month, &c.Clicks); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

func (r *SQLiteRepository) RecordQRCode(ctx context.Context, event *domain.QRCodeEvent) error {
	query := `INSERT INTO qr_code_analytics (id, user_id, content, was_shortened, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.OwnerID, event.Content, event.WasShortened, formatTime(event.CreatedAt))
	return err
}

func (r *SQLiteRepository) QRCodeStats(ctx context.Context) (*domain.QRCodeStats, error) {
	var stats domain.QRCodeStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN was_shortened THEN 1 ELSE 0 END), 0) FROM qr_code_analytics`,
	).Scan(&stats.TotalGenerated, &stats.Shortened)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// --- Reports ---

func (r *SQLiteRepository) RecordReport(ctx context.Context, report *domain.AbuseReport) error {
	query := `INSERT INTO reports (id, url, reason, message, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.URL, report.Reason, report.Message, formatTime(report.CreatedAt))
	return err
}

// Ensure interface compliance
var _ ports.Store = (*SQLiteRepository)(nil)
