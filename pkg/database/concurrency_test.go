package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mankai/mankai-server/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// newTestConfig uses a file database so that the WAL and busy settings are
// exercised the same way they are in production.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	cfg.DatabaseMaxRetries = 0
	return cfg
}

func TestNew_Pragmas(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

// TestConcurrentSequenceAllocation runs many transactions that each read
// MAX(sequence)+1 for the same parent and insert it. With a single serialized
// connection no two transactions may observe the same maximum.
func TestConcurrentSequenceAllocation(t *testing.T) {
	t.Parallel()

	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE seq_test (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		UNIQUE (parent_id, sequence)
	)`)
	require.NoError(t, err)

	const numWorkers = 10
	const insertsPerWorker = 20

	var wg sync.WaitGroup
	errs := make(chan error, numWorkers*insertsPerWorker)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < insertsPerWorker; i++ {
				errs <- db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
					var next int
					err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence), 0) + 1 FROM seq_test WHERE parent_id = 1").Scan(&next)
					if err != nil {
						return err
					}
					_, err = tx.ExecContext(ctx, "INSERT INTO seq_test (parent_id, sequence) VALUES (1, ?)", next)
					return err
				})
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var count, maxSeq int
	require.NoError(t, db.QueryRow("SELECT COUNT(*), MAX(sequence) FROM seq_test").Scan(&count, &maxSeq))
	assert.Equal(t, numWorkers*insertsPerWorker, count)
	assert.Equal(t, numWorkers*insertsPerWorker, maxSeq)
}
