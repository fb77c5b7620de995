package cmd

import (
	"context"

	"github.com/guggeis/chatrelay/internal/config"
	"github.com/guggeis/chatrelay/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	return store.Open(ctx, cfg.Store)
}
