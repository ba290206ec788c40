package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	ingest "github.com/xdose/go-ingest"
)

func TestSources_ReturnsPostgresAndSQLite(t *testing.T) {
	sources, err := Sources()
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, source := range sources {
		matches, globErr := fs.Glob(source.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", source.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", source.Dialect)
		}
		switch source.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres source")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite source")
	}
}

func TestSourceFor_NormalizesAndRejectsUnknown(t *testing.T) {
	source, err := SourceFor(" SQLite ")
	if err != nil {
		t.Fatalf("source for sqlite: %v", err)
	}
	if source.Dialect != DialectSQLite {
		t.Fatalf("expected sqlite source, got %q", source.Dialect)
	}

	if _, err := SourceFor("mysql"); err == nil {
		t.Fatalf("expected unknown dialect error")
	}
}

func TestApply_OnlyRequestedDialect(t *testing.T) {
	var calls []string
	err := Apply(context.Background(), func(_ context.Context, dialect string, fsys fs.FS) error {
		if fsys == nil {
			t.Fatalf("expected a filesystem for %s", dialect)
		}
		calls = append(calls, dialect)
		return nil
	}, DialectSQLite)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("expected a single sqlite apply call, got %v", calls)
	}
}

func TestApply_DefaultsToBothDialects(t *testing.T) {
	var calls []string
	err := Apply(context.Background(), func(_ context.Context, dialect string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected both dialects applied, got %v", calls)
	}
}

func TestApply_PropagatesCallbackFailure(t *testing.T) {
	boom := errors.New("register failed")
	err := Apply(context.Background(), func(context.Context, string, fs.FS) error {
		return boom
	}, DialectSQLite)
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected callback failure to surface, got %v", err)
	}
}

func TestCoreMigrationPairs_ExistForBothDialects(t *testing.T) {
	root := ingest.GetMigrationsFS()
	names := []string{
		"0001_create_videos",
		"0002_create_payments",
		"0003_create_webhook_events",
		"0004_create_access_grants",
	}
	for _, name := range names {
		paths := []string{
			"data/sql/migrations/" + name + ".up.sql",
			"data/sql/migrations/" + name + ".down.sql",
			"data/sql/migrations/sqlite/" + name + ".up.sql",
			"data/sql/migrations/sqlite/" + name + ".down.sql",
		}
		for _, migrationPath := range paths {
			content, err := fs.ReadFile(root, migrationPath)
			if err != nil {
				t.Fatalf("read migration %s: %v", migrationPath, err)
			}
			if strings.TrimSpace(string(content)) == "" {
				t.Fatalf("expected migration %s to have SQL content", migrationPath)
			}
		}
	}
}

func TestSQLiteCoreSchema_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-core-schema?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	source, err := SourceFor(DialectSQLite)
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	ups := []string{
		"0001_create_videos.up.sql",
		"0002_create_payments.up.sql",
		"0003_create_webhook_events.up.sql",
		"0004_create_access_grants.up.sql",
	}
	for _, migration := range ups {
		if err := execSQLMigration(context.Background(), db, source.FS, migration); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}

	for _, tableName := range []string{"videos", "payments", "webhook_events", "access_grants"} {
		var count int
		if err := db.QueryRowContext(
			context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
			tableName,
		).Scan(&count); err != nil {
			t.Fatalf("query sqlite_master for %s: %v", tableName, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist after up migrations", tableName)
		}
	}

	insertPayment := `
		INSERT INTO payments (id, payment_id, order_id, creator_id, kind, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertPayment,
		"row_1", "pay_1", "xdose_1_c1_tip", "c1", "tip", "waiting",
		"2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	if _, err := db.ExecContext(
		context.Background(),
		insertPayment,
		"row_2", "pay_1", "xdose_2_c1_tip", "c1", "tip", "waiting",
		"2026-01-02T00:00:00Z", "2026-01-02T00:00:00Z",
	); err == nil {
		t.Fatalf("expected unique payment_id violation")
	}

	downs := []string{
		"0004_create_access_grants.down.sql",
		"0003_create_webhook_events.down.sql",
		"0002_create_payments.down.sql",
		"0001_create_videos.down.sql",
	}
	for _, migration := range downs {
		if err := execSQLMigration(context.Background(), db, source.FS, migration); err != nil {
			t.Fatalf("apply migration %s: %v", migration, err)
		}
	}

	var count int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`,
		"payments",
	).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master after down migrations: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected payments to be dropped after down migrations")
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
