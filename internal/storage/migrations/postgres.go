package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"solana-nft-kit/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// returns how many were applied. Migrations are expected to be idempotent;
// the indexer runs them on every startup.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) (int, error) {
	entries, err := fs.ReadDir(PostgresFS, "postgres")
	if err != nil {
		return 0, fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", file, err)
		}
		applied++
	}

	return applied, nil
}
