// Package users exposes the owner directory consumed at submission time.
// Account management itself lives outside this service.
package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/finsight/finsight/internal/store"
)

// Directory answers whether an owning principal exists.
type Directory interface {
	Exists(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

// StoreDirectory backs the directory with the users table.
type StoreDirectory struct {
	db store.Store
}

func NewStoreDirectory(db store.Store) *StoreDirectory {
	return &StoreDirectory{db: db}
}

func (d *StoreDirectory) Exists(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	return d.db.UserExists(ctx, ownerID)
}

var _ Directory = (*StoreDirectory)(nil)
