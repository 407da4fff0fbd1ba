package repository

import (
	"context"

	"gorm.io/gorm"
)

// SequenceRepository serializes document-number minting. Lock takes a
// transaction-scoped advisory lock on the given key so two transactions
// counting rows for the same prefix cannot mint the same number.
type SequenceRepository interface {
	Lock(ctx context.Context, key string) error
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Lock(ctx context.Context, key string) error {
	return GetDB(ctx, r.db).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}
