package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	ingest "github.com/xdose/go-ingest"
)

// One migration set, two dialects: the postgres files sit at the root of the
// embedded tree and the sqlite alternatives under sqlite/.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embedRoot = "data/sql/migrations"

// Source is one dialect's migration filesystem.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Sources splits the embedded tree per dialect, checking each holds at least
// one up migration and that every up file has a matching down file.
func Sources() ([]Source, error) {
	base, err := fs.Sub(ingest.GetMigrationsFS(), embedRoot)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s not found: %w", embedRoot, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: embedRoot, FS: base},
		{Dialect: DialectSQLite, Path: embedRoot + "/sqlite", FS: sqliteFS},
	}
	for _, source := range sources {
		if err := checkPairs(source); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// SourceFor returns the migration filesystem for one dialect.
func SourceFor(dialect string) (Source, error) {
	normalized := strings.TrimSpace(strings.ToLower(dialect))
	sources, err := Sources()
	if err != nil {
		return Source{}, err
	}
	for _, source := range sources {
		if source.Dialect == normalized {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: unknown dialect %q", dialect)
}

// ApplyFunc receives one dialect's validated migration filesystem.
type ApplyFunc func(ctx context.Context, dialect string, fsys fs.FS) error

// Apply hands each requested dialect's filesystem to fn. With no dialects
// given it covers both.
func Apply(ctx context.Context, fn ApplyFunc, dialects ...string) error {
	if fn == nil {
		return fmt.Errorf("migrations: apply function is required")
	}
	if len(dialects) == 0 {
		dialects = []string{DialectPostgres, DialectSQLite}
	}
	for _, dialect := range dialects {
		source, err := SourceFor(dialect)
		if err != nil {
			return err
		}
		if err := fn(ctx, source.Dialect, source.FS); err != nil {
			return fmt.Errorf("migrations: apply %s (%s): %w", source.Dialect, source.Path, err)
		}
	}
	return nil
}

func checkPairs(source Source) error {
	ups, err := fs.Glob(source.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", source.Dialect, source.Path, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s source %q has no *.up.sql files", source.Dialect, source.Path)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, statErr := fs.Stat(source.FS, down); statErr != nil {
			return fmt.Errorf("migrations: %s migration %q has no matching down file", source.Dialect, up)
		}
	}
	return nil
}
