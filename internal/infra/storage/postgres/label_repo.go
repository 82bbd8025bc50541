package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/tronwatch/internal/core/domain"
)

// LabelRepo implements storage.AddressLabelRepository using PostgreSQL.
type LabelRepo struct {
	db *DB
}

func NewLabelRepo(db *DB) *LabelRepo {
	return &LabelRepo{db: db}
}

func (r *LabelRepo) Get(ctx context.Context, address string) (*domain.AddressLabel, error) {
	var label domain.AddressLabel
	err := r.db.GetContext(ctx, &label,
		`SELECT address, type, name FROM address_labels WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label for %s: %w", address, err)
	}
	return &label, nil
}

func (r *LabelRepo) Upsert(ctx context.Context, label *domain.AddressLabel) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO address_labels (address, type, name)
		VALUES (:address, :type, :name)
		ON CONFLICT (address) DO UPDATE SET type = EXCLUDED.type, name = EXCLUDED.name`, label)
	if err != nil {
		return fmt.Errorf("failed to upsert label for %s: %w", label.Address, err)
	}
	return nil
}
