package mods

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mod-registry/core/entity"
	"mod-registry/core/identity"
	"mod-registry/core/storage"
	"mod-registry/feature/mods/replicate"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the mods feature.
func NewFeature(entities *entity.Store, indexes *entity.Index, client storage.Client, bucket string,
	resolver identity.Resolver, logger *zap.Logger, dev bool, cfg Config) *Feature {
	engine := replicate.NewEngine(entities, indexes, logger, replicate.Options{
		RetractChildren: cfg.RetractChildren,
	})
	svc := NewService(entities, indexes, client, bucket, resolver, engine, logger, cfg)
	h := NewHandler(svc, dev)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "mods"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's authenticated routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// RegisterPublicRoutes registers the unauthenticated discovery routes;
// called before the auth middleware is installed.
func (f *Feature) RegisterPublicRoutes(app fiber.Router) {
	f.handler.RegisterPublicRoutes(app)
}
