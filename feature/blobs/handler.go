package blobs

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/logger"
	"mod-registry/core/middleware/auth"
)

// Handler handles HTTP requests for blob lifecycle operations. All routes
// are admin-only.
type Handler struct {
	service *Service
	dev     bool
}

// NewHandler creates a new HTTP handler. With dev true, internal error
// detail is returned to callers instead of a generic message.
func NewHandler(service *Service, dev bool) *Handler {
	return &Handler{service: service, dev: dev}
}

// RegisterRoutes registers the blob routes behind the admin gate.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/blobs", auth.RequireAdmin())
	group.Get("/", h.HandleList)
	group.Post("/mark", h.HandleMark)
	group.Post("/unmark", h.HandleUnmark)
	group.Post("/sweep", h.HandleSweep)
	group.Get("/scan", h.HandleScan)
	group.Get("/orphans", h.HandleOrphans)
	group.Get("/duplicates", h.HandleDuplicates)
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	l := logger.WithRayID(h.service.logger, c)
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if apperr.ClientVisible(kind) {
		return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind.String()})
	}
	l.Error("blob operation failed", zap.Error(err))
	if h.dev {
		return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind.String()})
	}
	return c.Status(status).JSON(fiber.Map{"error": "internal error"})
}

// HandleList pages through the bucket with soft-delete state.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	entries, next, err := h.service.List(c.Context(), c.Query("prefix"), c.Query("cursor"), c.QueryInt("limit"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"blobs": entries, "cursor": next})
}

type markRequest struct {
	Key  string   `json:"key"`
	Keys []string `json:"keys"`
}

// HandleMark marks one blob (key) or a batch (keys) for deletion.
func (h *Handler) HandleMark(c *fiber.Ctx) error {
	var in markRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	if len(in.Keys) > 0 {
		return c.JSON(fiber.Map{"results": h.service.MarkBulk(c.Context(), in.Keys)})
	}
	if in.Key == "" {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "key or keys required"))
	}
	entry, err := h.service.Mark(c.Context(), in.Key)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(entry)
}

// HandleUnmark rescues a blob from the next sweep.
func (h *Handler) HandleUnmark(c *fiber.Ctx) error {
	var in markRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	if in.Key == "" {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "key required"))
	}
	if err := h.service.Unmark(c.Context(), in.Key); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"unmarked": true})
}

type sweepRequest struct {
	GraceDays int `json:"grace_days"`
}

// HandleSweep deletes marked blobs whose grace period has expired.
func (h *Handler) HandleSweep(c *fiber.Ctx) error {
	var in sweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
		}
	}
	report, err := h.service.SweepAndDelete(c.Context(), in.GraceDays)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(report)
}

// HandleScan reports orphans and duplicate candidates without deleting.
func (h *Handler) HandleScan(c *fiber.Ctx) error {
	report, err := h.service.Scan(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(report)
}

// HandleOrphans returns only the orphan half of the scan report.
func (h *Handler) HandleOrphans(c *fiber.Ctx) error {
	report, err := h.service.Scan(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"orphans": report.Orphans, "summary": report.Summary})
}

// HandleDuplicates returns only the duplicate groups of the scan report.
func (h *Handler) HandleDuplicates(c *fiber.Ctx) error {
	report, err := h.service.Scan(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"duplicates": report.Duplicates, "summary": report.Summary})
}
