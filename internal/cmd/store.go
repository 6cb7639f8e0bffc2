package cmd

import (
	"context"
	"errors"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core/store"
	apperrors "github.com/namelens/reachlens/internal/errors"
)

var (
	errStoreDisabled    = errors.New("store is disabled (store.disabled=true)")
	errStoreUnavailable = errors.New("store could not be opened")
)

// openStore opens and migrates the configured store. It returns
// errStoreDisabled when the store is switched off.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg.Store.Disabled {
		return nil, errStoreDisabled
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// storeError wraps a failed store operation in a STORE_ERROR envelope.
func storeError(ctx context.Context, err error, message string) error {
	if err == nil {
		return nil
	}
	return apperrors.WrapStoreError(ctx, err, message)
}
