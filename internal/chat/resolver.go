package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warelinehq/wareline/internal/store"
)

// Resolver disambiguates user-typed sector and warehouse names against the
// requesting user's stored records.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// ResolveSector finds a sector by the user-typed token using three tiers,
// each tried only when the previous one missed:
//
//  1. exact, case-sensitive name match
//  2. case-insensitive full-name match
//  3. for "Sector <n>" tokens, the first of the user's sectors whose name
//     ends with the bare number
//
// Evaluation stops at the first hit so a looser tier can never override a
// stricter one. Returns store.ErrNotFound when every tier misses; any other
// error is a backend failure.
func (r *Resolver) ResolveSector(ctx context.Context, token, owner string) (*store.Sector, error) {
	sec, err := r.store.FindSectorByName(ctx, token, owner)
	if err == nil {
		return sec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolve sector %q: %w", token, err)
	}

	sec, err = r.store.FindSectorByNameFold(ctx, token, owner)
	if err == nil {
		return sec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolve sector %q: %w", token, err)
	}

	if num, ok := strings.CutPrefix(token, "Sector "); ok {
		num = strings.TrimSpace(num)
		sectors, err := r.store.FindSectors(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("resolve sector %q: %w", token, err)
		}
		for i := range sectors {
			if strings.HasSuffix(sectors[i].Name, num) {
				return &sectors[i], nil
			}
		}
	}

	return nil, store.ErrNotFound
}

// ResolveWarehouse finds a warehouse by name within a sector, scoped to the
// owner, with a single case-insensitive tier. Unlike sectors there is no
// numeric-suffix fallback.
func (r *Resolver) ResolveWarehouse(ctx context.Context, name, sectorID, owner string) (*store.Warehouse, error) {
	w, err := r.store.FindWarehouseByName(ctx, name, sectorID, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("resolve warehouse %q: %w", name, err)
	}
	return w, nil
}
