package logger

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the registry's logger from config. The debug level switches
// to zap's development preset; console format adds colored levels and
// drops stacktraces for local readability, anything else emits JSON.
func New(cfg *Config) (*zap.Logger, error) {
	base := zap.NewProductionConfig()
	if cfg.Level == "debug" {
		base = zap.NewDevelopmentConfig()
	}

	if cfg.Format == "console" {
		base.Encoding = "console"
		base.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		base.DisableStacktrace = true
	} else {
		base.Encoding = "json"
	}

	base.EncoderConfig.LevelKey = "level"
	base.EncoderConfig.TimeKey = "time"
	base.EncoderConfig.MessageKey = "message"

	return base.Build()
}

// WithRayID attaches the request's ray id so one request's log lines can
// be correlated across handlers and services.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	if rid, ok := c.Locals("ray_id").(string); ok && rid != "" {
		return l.With(zap.String("ray_id", rid))
	}
	return l
}
