package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/tronwatch/internal/infra/storage"
	"github.com/vietddude/tronwatch/internal/infra/storage/memory"
	"github.com/vietddude/tronwatch/internal/infra/storage/postgres"
)

// Stores groups the repositories of one storage backend.
type Stores struct {
	Blocks       storage.BlockRepository
	Transactions storage.TransactionRepository
	State        storage.SyncStateRepository
	Corrupt      storage.CorruptRepository
	Labels       storage.AddressLabelRepository

	db *postgres.DB
}

// OpenStores connects to PostgreSQL when a database URL is configured and
// falls back to process memory otherwise.
func OpenStores(ctx context.Context, cfg postgres.Config) (*Stores, error) {
	if cfg.URL == "" {
		store := memory.NewMemoryStorage()
		slog.Info("Using memory storage")
		return &Stores{
			Blocks:       memory.NewBlockRepo(store),
			Transactions: memory.NewTxRepo(store),
			State:        memory.NewSyncStateRepo(store),
			Corrupt:      memory.NewCorruptRepo(store),
			Labels:       memory.NewLabelRepo(store),
		}, nil
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	if cfg.Migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	slog.Info("Using PostgreSQL storage")
	return &Stores{
		Blocks:       postgres.NewBlockRepo(db),
		Transactions: postgres.NewTxRepo(db),
		State:        postgres.NewSyncStateRepo(db),
		Corrupt:      postgres.NewCorruptRepo(db),
		Labels:       postgres.NewLabelRepo(db),
		db:           db,
	}, nil
}

// Persistent reports whether the stores outlive the process.
func (s *Stores) Persistent() bool {
	return s.db != nil
}

func (s *Stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
