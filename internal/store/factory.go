package store

import (
	"context"
	"strings"
)

// NewStore creates the configured store backend. Mode "memory" is the
// explicit dev/test escape hatch; anything else is postgres.
func NewStore(ctx context.Context, mode, databaseURL string) (Store, error) {
	if strings.EqualFold(strings.TrimSpace(mode), "memory") {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
