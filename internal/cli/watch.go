package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice"
)

// WatchScripts reloads a script every time its document changes, until ctx is done.
// A reload that fails validation keeps the previous version installed.
func WatchScripts(ctx context.Context, eng *lattice.Engine, logger *slog.Logger) error {
	changes, err := eng.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching scripts for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := eng.Load(ctx, id); err != nil {
				logger.Warn("reload failed", "script", id, "err", err)
				continue
			}
			logger.Info("script reloaded", "script", id)
		}
	}
}
