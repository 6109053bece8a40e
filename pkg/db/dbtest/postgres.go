package dbtest

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"flightbooker/pkg/db"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
)

// DatabaseURLEnv names the Postgres server used by repository tests.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// Postgres returns a client bound to a fresh schema with every migration in
// db/migrations applied. The schema is dropped when the test ends. The test is
// skipped unless TEST_DATABASE_URL is set.
func Postgres(t *testing.T) *db.SQLClient {
	t.Helper()
	base := os.Getenv(DatabaseURLEnv)
	if base == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}

	admin, err := db.NewSQLClient("pgx", base, db.PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(context.Background(), "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		_ = admin.Close()
	})

	dsn, err := withSearchPath(base, schema)
	require.NoError(t, err)

	m, err := migrate.New("file://"+migrationsDir(), dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate %s: %v", schema, err)
	}
	_, _ = m.Close()

	client, err := db.NewSQLClient("pgx", dsn, db.PoolConfig{MaxOpenConns: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "migrations")
}
