package repository

import (
	"context"
	"strings"

	"github.com/urlzip/urlzip/pkg/adapters/repository/postgres"
	"github.com/urlzip/urlzip/pkg/adapters/repository/sqlite"
	"github.com/urlzip/urlzip/pkg/ports"
)

// Open picks a store by URL scheme: postgres for postgres:// URLs, otherwise
// sqlite (local file or a libsql:// remote).
func Open(ctx context.Context, databaseURL string) (ports.Store, error) {
	if IsPostgres(databaseURL) {
		return postgres.NewPostgresRepository(ctx, databaseURL)
	}
	return sqlite.NewSQLiteRepository(ctx, databaseURL)
}

func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
