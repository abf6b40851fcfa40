package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/config"
	"github.com/aretw0/lattice/pkg/adapters/loam"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/adapters/redis"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
)

// NewEngine builds an engine following the configuration: state driver, scripts directory, quotas and folding.
// extra options are applied last and win.
func NewEngine(cfg config.Config, logger *slog.Logger, extra ...lattice.Option) (*lattice.Engine, error) {
	store, err := OpenStateStore(cfg.State, cfg.Quotas.MaxStateEntries)
	if err != nil {
		return nil, err
	}

	opts := []lattice.Option{
		lattice.WithLogger(logger),
		lattice.WithStateStore(store),
		lattice.WithQuotas(cfg.Quotas),
		lattice.WithFolding(cfg.Fold),
		lattice.WithMaxInputSize(cfg.MaxInputSize),
	}

	if cfg.ScriptsDir != "" {
		loader, err := loam.Open(cfg.ScriptsDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, lattice.WithLoader(loader))
	}

	engine, err := lattice.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// OpenStateStore creates the configured state store, wrapped by the redaction and encryption middlewares
// when the configuration asks for them. Redaction runs before encryption so masked values are sealed too.
func OpenStateStore(cfg config.StateConfig, maxEntries int) (ports.StateStore, error) {
	store, err := openBackend(cfg, maxEntries)
	if err != nil {
		return nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryption(cfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

func encryption(cfg config.StateConfig) (middleware.Middleware, error) {
	active, err := middleware.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: state.encryption_key: %v", config.ErrInvalidConfig, err)
	}
	encCfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.FallbackKeys {
		key, err := middleware.DecodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: state.fallback_keys: %v", config.ErrInvalidConfig, err)
		}
		encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(encCfg)
}

func openBackend(cfg config.StateConfig, maxEntries int) (ports.StateStore, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return memory.NewStore(memory.WithMaxEntries(maxEntries)), nil
	case config.DriverRedis:
		opts := []redis.Option{redis.WithMaxEntries(maxEntries), redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown state driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}
