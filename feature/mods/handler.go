package mods

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/identity"
	"mod-registry/core/logger"
	"mod-registry/core/middleware/auth"
)

// Handler handles HTTP requests for mods.
type Handler struct {
	service *Service
	dev     bool
}

// NewHandler creates a new HTTP handler. With dev true, internal error
// detail is returned to callers instead of a generic message.
func NewHandler(service *Service, dev bool) *Handler {
	return &Handler{service: service, dev: dev}
}

// RegisterPublicRoutes registers the unauthenticated discovery routes.
// Must be called before the auth middleware is installed.
func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	group := app.Group("/discover")
	group.Get("/", h.HandleListPublic)
	group.Get("/:slug", h.HandleGetBySlug)
	app.Post("/mods/:id/download", h.HandleDownload)
}

// RegisterRoutes registers the authenticated mod routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/mods")
	group.Post("/", h.HandleCreate)
	group.Get("/", h.HandleListOwn)
	group.Get("/:id", h.HandleGet)
	group.Patch("/:id", h.HandleUpdate)
	group.Delete("/:id", h.HandleDelete)
	group.Post("/:id/comments", h.HandleAddComment)
	group.Post("/:id/versions", h.HandleCreateVersion)
	group.Post("/:id/versions/:versionId/variants", h.HandleCreateVariant)
	group.Post("/:id/thumbnail", h.HandleUploadThumbnail)

	admin := group.Group("", auth.RequireAdmin())
	admin.Post("/:id/status", h.HandleUpdateStatus)
	admin.Post("/:id/repair-variants", h.HandleRepairVariants)
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	l := logger.WithRayID(h.service.logger, c)
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if apperr.ClientVisible(kind) {
		return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind.String()})
	}
	l.Error("mod operation failed", zap.Error(err))
	if h.dev {
		return c.Status(status).JSON(fiber.Map{"error": err.Error(), "kind": kind.String()})
	}
	return c.Status(status).JSON(fiber.Map{"error": "internal error"})
}

func (h *Handler) principal(c *fiber.Ctx) (*identity.Principal, error) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "no principal on request")
	}
	return p, nil
}

// HandleCreate creates a mod in the caller's private partition.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var in CreateModInput
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	mod, err := h.service.Create(c.Context(), p, in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(mod)
}

// HandleListOwn lists the caller's mods.
func (h *Handler) HandleListOwn(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := h.service.ListOwn(c.Context(), p)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"mods": out})
}

// HandleGet returns a mod's authoritative copy.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	mod, err := h.service.Get(c.Context(), p, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(mod)
}

// HandleUpdate applies a metadata/visibility patch.
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var in UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	mod, err := h.service.Update(c.Context(), p, c.Params("id"), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(mod)
}

// HandleDelete destroys a mod, its descendants and its index entries.
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.service.Delete(c.Context(), p, c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// HandleUpdateStatus runs a review transition.
func (h *Handler) HandleUpdateStatus(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var in statusRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	mod, err := h.service.UpdateStatus(c.Context(), p, c.Params("id"), in.Status, in.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(mod)
}

type commentRequest struct {
	Content string `json:"content"`
}

// HandleAddComment appends a review comment.
func (h *Handler) HandleAddComment(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var in commentRequest
	if err := c.BodyParser(&in); err != nil {
		return h.respondError(c, apperr.New(apperr.KindInvalidInput, "malformed body: %v", err))
	}
	comment, err := h.service.AddComment(c.Context(), p, c.Params("id"), in.Content)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func uploadFromRequest(c *fiber.Ctx) UploadInput {
	body := c.Body()
	return UploadInput{
		Filename: c.Query("filename"),
		Checksum: c.Query("checksum"),
		Size:     int64(len(body)),
		Body:     bytes.NewReader(body),
	}
}

// HandleCreateVersion uploads a version file (raw body, filename/checksum
// as query parameters).
func (h *Handler) HandleCreateVersion(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	version, err := h.service.CreateVersion(c.Context(), p, c.Params("id"), uploadFromRequest(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(version)
}

// HandleCreateVariant uploads an alternate build for a version.
func (h *Handler) HandleCreateVariant(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	variant, err := h.service.CreateVariant(c.Context(), p, c.Params("id"), c.Params("versionId"), uploadFromRequest(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}

// HandleUploadThumbnail uploads the mod's listing image.
func (h *Handler) HandleUploadThumbnail(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	mod, err := h.service.UploadThumbnail(c.Context(), p, c.Params("id"), uploadFromRequest(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(mod)
}

// HandleRepairVariants re-points dangling variant version pointers.
func (h *Handler) HandleRepairVariants(c *fiber.Ctx) error {
	p, err := h.principal(c)
	if err != nil {
		return h.respondError(c, err)
	}
	repaired, err := h.service.RepairVariants(c.Context(), p, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"repaired": repaired})
}

// HandleListPublic lists the public partition. Unauthenticated.
func (h *Handler) HandleListPublic(c *fiber.Ctx) error {
	out, err := h.service.ListPublic(c.Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"mods": out})
}

// HandleGetBySlug resolves a public mod by slug. Unauthenticated.
func (h *Handler) HandleGetBySlug(c *fiber.Ctx) error {
	mod, err := h.service.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(mod)
}

// HandleDownload counts a download against a public mod. Unauthenticated.
func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	downloads, err := h.service.Download(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"downloads": downloads})
}
