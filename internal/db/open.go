package db

import (
	"context"
	"fmt"

	"github.com/lucasnoah/axpipe/internal/config"
)

// OpenJournal opens and migrates the journal selected by cfg.Journal.
// The SQLite journal lives at layout.JournalPath().
func OpenJournal(ctx context.Context, cfg config.JournalConfig, layout config.Layout) (Journal, error) {
	var (
		j   Journal
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		j, err = Open(layout.JournalPath())
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("journal.dsn is required for the postgres driver")
		}
		j, err = OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := j.Migrate(ctx); err != nil {
		j.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}
