package blobs

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mod-registry/core/entity"
	"mod-registry/core/storage"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the blobs feature.
func NewFeature(entities *entity.Store, indexes *entity.Index, client storage.Client, bucket string,
	logger *zap.Logger, dev bool, cfg Config) *Feature {
	svc := NewService(entities, indexes, client, bucket, logger, cfg)
	h := NewHandler(svc, dev)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "blobs"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the underlying service for scheduled jobs and commands.
func (f *Feature) Service() *Service {
	return f.service
}
