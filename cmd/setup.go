package cmd

import (
	"context"
	"fmt"

	"mod-registry/core/config"
	"mod-registry/core/entity"
	"mod-registry/core/kv"
	"mod-registry/core/logger"
	"mod-registry/core/storage"
	"mod-registry/feature/blobs"

	"go.uber.org/zap"
)

// runtime bundles the collaborators every command boots: configuration,
// logging, the key-value backend and the blob store.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	backend  kv.Store
	entities *entity.Store
	indexes  *entity.Index
	store    storage.Client
}

// bootstrap loads configuration and connects the backends.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Server.IsValidEnvironment() {
		return nil, fmt.Errorf("unknown environment %q", cfg.Server.Environment)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	backend, err := kv.NewRedisStore(ctx, cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to key-value backend: %w", err)
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   l,
		backend:  backend,
		entities: entity.NewStore(backend),
		indexes:  entity.NewIndex(backend),
		store:    store,
	}, nil
}

// close releases the runtime's connections.
func (r *runtime) close() {
	_ = r.backend.Close()
	_ = r.logger.Sync()
}

// blobService builds the blob lifecycle service for maintenance commands.
func (r *runtime) blobService() *blobs.Service {
	return blobs.NewService(r.entities, r.indexes, r.store, r.cfg.Storage.Bucket, r.logger, r.cfg.Blobs)
}
