package store

import (
	"context"
	"errors"
)

// ErrNotFound marks a scoped lookup that matched nothing. Callers must treat
// any other error as backend unavailability, not absence.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract the chat core consumes. Every sector
// read is scoped to owner and excludes soft-deleted rows; warehouse lookups
// are additionally scoped to their sector.
type Store interface {
	FindSectors(ctx context.Context, owner string) ([]Sector, error)
	FindSectorByName(ctx context.Context, name, owner string) (*Sector, error)
	FindSectorByNameFold(ctx context.Context, name, owner string) (*Sector, error)
	FindWarehouses(ctx context.Context, owner, sectorID string) ([]Warehouse, error)
	FindWarehouseByName(ctx context.Context, name, sectorID, owner string) (*Warehouse, error)
	InsertLog(ctx context.Context, rec LogRecord) (string, error)

	// Admin/seed surface; chat turns never create sectors or warehouses.
	CreateSector(ctx context.Context, s Sector) (string, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (string, error)

	Ping(ctx context.Context) error
	Close() error
}
