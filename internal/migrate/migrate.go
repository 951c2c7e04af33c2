package migrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/example/spoon-voicebot/internal/db"
	"github.com/rs/zerolog/log"
)

//go:embed *.sql
var files embed.FS

// Files returns the embedded migration names in apply order.
func Files() ([]string, error) {
	return list(files)
}

func list(fsys fs.ReadDirFS) ([]string, error) {
	entries, err := fsys.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Up applies every embedded migration not yet recorded in schema_migrations.
func Up(ctx context.Context, d *db.DB) error {
	names, err := Files()
	if err != nil {
		return err
	}

	if err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now());`); err != nil {
		return err
	}

	for _, name := range names {
		var applied bool
		if err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, name).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}

		body, err := files.ReadFile(name)
		if err != nil {
			return err
		}
		err = d.InTx(ctx, func(tx db.Tx) error {
			if err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			return tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, name)
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		log.Info().Str("version", name).Msg("applied migration")
	}

	return nil
}
