package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/urlzip/urlzip/pkg/core/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	repo, err := NewSQLiteRepository(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newLink(code, url string, created time.Time, owner *string) *domain.ShortLink {
	return &domain.ShortLink{
		ID:          uuid.NewString(),
		ShortCode:   code,
		OriginalURL: url,
		OwnerID:     owner,
		CreatedAt:   created,
	}
}

func TestInsertAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 5, 10, 30, 0, 123000000, time.UTC)
	owner := "google-42"

	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Abc123", "https://example.com/a", created, &owner)))

	got, err := repo.GetByShortCode(ctx, "Abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com/a", got.OriginalURL)
	assert.Equal(t, int64(0), got.Clicks)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, owner, *got.OwnerID)

	// Lookups are case sensitive.
	missing, err := repo.GetByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertIfAbsentCollision(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Abc123", "https://first.example", time.Now(), nil)))
	err := repo.InsertIfAbsent(ctx, newLink("Abc123", "https://second.example", time.Now(), nil))
	assert.ErrorIs(t, err, domain.ErrCodeTaken)

	got, err := repo.GetByShortCode(ctx, "Abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example", got.OriginalURL)
	assert.Nil(t, got.OwnerID)
}

func TestIncrementClicksAbsent(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.IncrementClicks(context.Background(), "ZZZZZZ", &domain.Visit{CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Nil(t, got)

	clicks, err := repo.MonthlyClicks(context.Background(), "anything", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, clicks)
}

func TestIncrementClicksConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	link := newLink("Abc123", "https://example.com", time.Now(), nil)
	require.NoError(t, repo.InsertIfAbsent(ctx, link))

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := repo.IncrementClicks(ctx, "Abc123", &domain.Visit{UserAgent: "test", CreatedAt: time.Now()})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := repo.GetByShortCode(ctx, "Abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Clicks)

	_, clicks, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), clicks)

	series, err := repo.MonthlyClicks(ctx, link.ID, time.Time{})
	require.NoError(t, err)
	var visits int64
	for _, m := range series {
		visits += m.Clicks
	}
	assert.Equal(t, int64(50), visits)
}

func TestIncrementReturnsUpdatedCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Abc123", "https://example.com", time.Now(), nil)))

	for i := int64(1); i <= 3; i++ {
		visit := &domain.Visit{CreatedAt: time.Now()}
		got, err := repo.IncrementClicks(ctx, "Abc123", visit)
		require.NoError(t, err)
		assert.Equal(t, i, got.Clicks)
		assert.Equal(t, got.ID, visit.LinkID)
		assert.NotZero(t, visit.ID)
	}
}

func TestMonthlyStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	old := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("AAAAAA", "https://a.example", jan, nil)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("BBBBBB", "https://b.example", feb, nil)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("CCCCCC", "https://c.example", feb, nil)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("DDDDDD", "https://d.example", old, nil)))

	for i := 0; i < 2; i++ {
		_, err := repo.IncrementClicks(ctx, "BBBBBB", &domain.Visit{CreatedAt: feb})
		require.NoError(t, err)
	}

	stats, err := repo.MonthlyStats(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []domain.MonthlyStats{
		{Month: "2024-01", TotalClicks: 0, TotalUrls: 1},
		{Month: "2024-02", TotalClicks: 2, TotalUrls: 2},
	}, stats)

	urls, clicks, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), urls)
	assert.Equal(t, int64(2), clicks)
}

func TestListByOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice, bob := "alice", "bob"
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		code := fmt.Sprintf("Alice%d", i)
		require.NoError(t, repo.InsertIfAbsent(ctx, newLink(code, fmt.Sprintf("https://alice.example/%d", i), base.Add(time.Duration(i)*time.Hour), &alice)))
	}
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Bob000", "https://bob.example", base, &bob)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Anon00", "https://anon.example", base, nil)))

	links, err := repo.ListByOwner(ctx, alice, 2, 0, "")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Alice4", links[0].ShortCode)
	assert.Equal(t, "Alice3", links[1].ShortCode)

	links, err = repo.ListByOwner(ctx, alice, 10, 4, "")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Alice0", links[0].ShortCode)

	count, err := repo.CountByOwner(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	count, err = repo.CountByOwner(ctx, alice, "example/3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	all, err := repo.Dump(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestListByOwnerSearchIsLiteral(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := "carol"
	now := time.Now()

	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Sale01", "https://shop.example/100%_off", now, &owner)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Plain1", "https://shop.example/plain", now, &owner)))
	require.NoError(t, repo.InsertIfAbsent(ctx, newLink("Path01", `https://shop.example/a\b`, now, &owner)))

	tests := map[string]int64{
		"%":      1,
		"_":      1,
		"%_off":  1,
		"p_ain":  0,
		`\`:      1,
		"shop":   3,
		"":       3,
		"nomatc": 0,
	}
	for search, want := range tests {
		count, err := repo.CountByOwner(ctx, owner, search)
		require.NoError(t, err, search)
		assert.Equal(t, want, count, "count for %q", search)

		links, err := repo.ListByOwner(ctx, owner, 10, 0, search)
		require.NoError(t, err, search)
		assert.Len(t, links, int(want), "list for %q", search)
	}
}

func TestQRCodeAndReports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.RecordQRCode(ctx, &domain.QRCodeEvent{ID: uuid.NewString(), OwnerID: "alice", Content: "https://x", WasShortened: true, CreatedAt: time.Now()}))
	require.NoError(t, repo.RecordQRCode(ctx, &domain.QRCodeEvent{ID: uuid.NewString(), OwnerID: "alice", Content: "hello", CreatedAt: time.Now()}))

	stats, err := repo.QRCodeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.QRCodeStats{TotalGenerated: 2, Shortened: 1}, stats)

	err = repo.RecordReport(ctx, &domain.AbuseReport{ID: uuid.NewString(), URL: "https://bad.example", Reason: "phishing", CreatedAt: time.Now()})
	assert.NoError(t, err)
}
