// Package migrate applies the repository's SQL schema. Migration files live
// under db/migrations/<dialect> and are applied in lexical order; files are
// written to be idempotent (CREATE IF NOT EXISTS) so re-running at startup
// is safe.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

type Runner struct {
	files fs.FS
}

func NewRunner(files fs.FS) *Runner {
	return &Runner{files: files}
}

// Apply runs every .sql file for dialect against db and returns the applied
// file names in order.
func (r *Runner) Apply(ctx context.Context, db *sql.DB, dialect string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	if dialect == "" {
		return nil, fmt.Errorf("empty dialect")
	}
	base := path.Join("db", "migrations", dialect)
	entries, err := fs.ReadDir(r.files, base)
	if err != nil {
		return nil, fmt.Errorf("read migrations for %s: %w", dialect, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	applied := make([]string, 0, len(names))
	for _, name := range names {
		full := path.Join(base, name)
		sqlBytes, err := fs.ReadFile(r.files, full)
		if err != nil {
			return applied, err
		}
		if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return applied, fmt.Errorf("apply %s: %w", full, err)
		}
		applied = append(applied, name)
	}
	return applied, nil
}
