package mods

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/identity"
	"mod-registry/core/storage"
	"mod-registry/feature/mods/models"
	"mod-registry/feature/mods/replicate"
)

// Service handles mod lifecycle operations: creation, metadata and
// visibility updates, review transitions, comments and deletion. Every
// status or visibility change runs through the replication engine.
type Service struct {
	entities *entity.Store
	indexes  *entity.Index
	client   storage.Client
	bucket   string
	resolver identity.Resolver
	engine   *replicate.Engine
	logger   *zap.Logger
	cfg      Config

	now func() time.Time
}

// NewService creates a new mods service.
func NewService(entities *entity.Store, indexes *entity.Index, client storage.Client, bucket string,
	resolver identity.Resolver, engine *replicate.Engine, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		entities: entities,
		indexes:  indexes,
		client:   client,
		bucket:   bucket,
		resolver: resolver,
		engine:   engine,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateModInput is the payload for Create.
type CreateModInput struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	// Submit creates the mod directly in pending instead of draft.
	Submit bool `json:"submit"`
}

// Create stores a new mod in the owner's private partition only, with
// private visibility and draft (or pending) status.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, in CreateModInput) (*models.Mod, error) {
	base, err := slugify(in.Title)
	if err != nil {
		return nil, err
	}
	slug, err := s.disambiguateSlug(ctx, base, "")
	if err != nil {
		return nil, err
	}

	status := models.StatusDraft
	if in.Submit {
		status = models.StatusPending
	}

	now := s.now()
	mod := &models.Mod{
		ID:         uuid.NewString(),
		OwnerID:    actor.TenantID,
		Slug:       slug,
		Status:     status,
		Visibility: models.VisibilityPrivate,
		Title:      strings.TrimSpace(in.Title),
		Category:   in.Category,
		Tags:       in.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Entity before indexes: a crash here leaves a mod reachable by id
	// from nothing, which the reconciliation pass tolerates.
	owner := entity.Private(actor.TenantID)
	if err := s.entities.Put(ctx, owner, entity.TypeMod, mod.ID, mod); err != nil {
		return nil, err
	}
	if err := s.indexes.SetSingle(ctx, entity.Registry, models.IndexOwnerOf, mod.ID, actor.TenantID, false); err != nil {
		return nil, err
	}
	if err := s.indexes.Add(ctx, entity.Registry, models.IndexByCustomer, actor.TenantID, mod.ID); err != nil {
		return nil, err
	}
	return mod, nil
}

// getOwned resolves a mod id to its authoritative private-partition copy
// through the owner-of pointer index; never by scanning tenant scopes.
func (s *Service) getOwned(ctx context.Context, modID string) (*models.Mod, error) {
	ownerID, err := s.indexes.GetSingle(ctx, entity.Registry, models.IndexOwnerOf, modID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "mod %s not found", modID)
	}
	if err != nil {
		return nil, err
	}
	var mod models.Mod
	if err := s.entities.Get(ctx, entity.Private(ownerID), entity.TypeMod, modID, &mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

func canManage(actor *identity.Principal, mod *models.Mod) bool {
	return actor.Admin || actor.TenantID == mod.OwnerID
}

// Get returns a mod's authoritative copy to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor *identity.Principal, modID string) (*models.Mod, error) {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}
	return mod, nil
}

// UpdateInput is a partial metadata/visibility patch. Nil fields are left
// unchanged.
type UpdateInput struct {
	Title      *string   `json:"title"`
	Category   *string   `json:"category"`
	Tags       *[]string `json:"tags"`
	Visibility *string   `json:"visibility"`
}

// Update applies a metadata or visibility patch and converges the
// partitions. A title change regenerates the slug; while the mod is (or
// becomes) public, a colliding regenerated slug is a Conflict rather than
// silently disambiguated. A visibility flip that publishes an already-live
// mod disambiguates its existing slug the same way a review transition
// into the public set does.
func (s *Service) Update(ctx context.Context, actor *identity.Principal, modID string, in UpdateInput) (*models.Mod, error) {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}

	prior := replicate.PriorOf(mod)

	if in.Visibility != nil {
		vis, err := models.ParseVisibility(*in.Visibility)
		if err != nil {
			return nil, err
		}
		mod.Visibility = vis
	}
	if in.Category != nil {
		mod.Category = *in.Category
	}
	if in.Tags != nil {
		mod.Tags = *in.Tags
	}
	if in.Title != nil {
		base, err := slugify(*in.Title)
		if err != nil {
			return nil, err
		}
		if base != mod.Slug {
			if mod.ShouldBePublic() {
				ok, err := s.slugAvailable(ctx, base, mod.ID)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, apperr.New(apperr.KindConflict, "slug %q is already taken", base)
				}
			}
			mod.Slug = base
		}
		mod.Title = strings.TrimSpace(*in.Title)
	}

	// A visibility flip on an already-live mod crosses the publication
	// boundary just like a status-driven entry; its slug may collide with
	// an already-public mod of the same title, so disambiguate here too.
	if mod.ShouldBePublic() && !prior.Public() {
		slug, err := s.disambiguateSlug(ctx, mod.Slug, mod.ID)
		if err != nil {
			return nil, err
		}
		mod.Slug = slug
	}

	mod.UpdatedAt = s.now()
	if err := s.applyReplication(ctx, mod, prior); err != nil {
		return nil, err
	}
	return mod, nil
}

// UpdateStatus runs a review transition. Review decisions out of pending
// are admin-only; other legal transitions belong to the owner (or an
// admin). The transition is appended to the status history with a
// display-name snapshot, then the replication engine converges the
// partitions.
func (s *Service) UpdateStatus(ctx context.Context, actor *identity.Principal, modID, newStatus, reason string) (*models.Mod, error) {
	next, err := models.ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}
	if mod.Status.RequiresAdmin(next) && !actor.Admin {
		return nil, apperr.New(apperr.KindForbidden, "transition %s -> %s requires admin", mod.Status, next)
	}
	if !mod.Status.CanTransitionTo(next) {
		return nil, apperr.New(apperr.KindInvalidInput, "illegal transition %s -> %s", mod.Status, next)
	}

	prior := replicate.PriorOf(mod)
	mod.StatusHistory = append(mod.StatusHistory, models.StatusHistoryEntry{
		ActorID:   actor.TenantID,
		ActorName: s.attributionName(ctx, actor),
		From:      mod.Status,
		To:        next,
		Reason:    reason,
		At:        s.now(),
	})
	mod.Status = next
	mod.UpdatedAt = s.now()

	// Entering the public set may collide on slug with an already-public
	// mod of the same title; pick a disambiguated variant, not an error.
	if mod.ShouldBePublic() && !prior.Public() {
		slug, err := s.disambiguateSlug(ctx, mod.Slug, mod.ID)
		if err != nil {
			return nil, err
		}
		mod.Slug = slug
	}

	if err := s.applyReplication(ctx, mod, prior); err != nil {
		return nil, err
	}
	return mod, nil
}

// AddComment appends a review comment to the private copy only. Comments
// are review internals: they never replicate, and the public mirror's
// view carries none of them.
func (s *Service) AddComment(ctx context.Context, actor *identity.Principal, modID, content string) (*models.ReviewComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "comment content is empty")
	}
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}

	comment := models.ReviewComment{
		ID:        uuid.NewString(),
		ActorID:   actor.TenantID,
		ActorName: s.attributionName(ctx, actor),
		Content:   content,
		At:        s.now(),
	}
	mod.ReviewComments = append(mod.ReviewComments, comment)
	mod.UpdatedAt = s.now()

	if err := s.entities.Put(ctx, entity.Private(mod.OwnerID), entity.TypeMod, mod.ID, mod); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete destroys a mod everywhere: public copies, private descendants,
// and every index entry referencing its id. Index entries are removed
// before the entities they point at; the private mod record goes last.
// Blobs are not touched here; they become orphans and are collected by
// the reconciliation scanner.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, modID string) error {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return err
	}
	if !canManage(actor, mod) {
		return apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}

	// Delete completeness always removes public child copies, regardless
	// of the configured retraction policy.
	if err := s.engine.Retract(ctx, mod, true); err != nil {
		s.logger.Warn("public retraction incomplete during delete",
			zap.String("mod_id", mod.ID), zap.Error(err))
	}

	owner := entity.Private(mod.OwnerID)
	versionIDs, err := s.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	if err != nil {
		return err
	}
	for _, vid := range versionIDs {
		variantIDs, err := s.indexes.Members(ctx, owner, models.IndexVariantsFor, vid)
		if err != nil {
			return err
		}
		for _, vaid := range variantIDs {
			if err := s.indexes.Remove(ctx, owner, models.IndexVariantsFor, vid, vaid); err != nil {
				return err
			}
			if err := s.entities.Delete(ctx, owner, entity.TypeVariant, vaid); err != nil {
				return err
			}
		}
		if err := s.indexes.Remove(ctx, owner, models.IndexVersionsFor, mod.ID, vid); err != nil {
			return err
		}
		if err := s.entities.Delete(ctx, owner, entity.TypeVersion, vid); err != nil {
			return err
		}
	}

	if err := s.indexes.Remove(ctx, entity.Registry, models.IndexByCustomer, mod.OwnerID, mod.ID); err != nil {
		return err
	}
	if err := s.indexes.DeleteSingle(ctx, entity.Registry, models.IndexOwnerOf, mod.ID); err != nil {
		return err
	}
	return s.entities.Delete(ctx, owner, entity.TypeMod, mod.ID)
}

// ListOwn returns the caller's mods through the by-customer index.
func (s *Service) ListOwn(ctx context.Context, actor *identity.Principal) ([]models.Mod, error) {
	ids, err := s.indexes.Members(ctx, entity.Registry, models.IndexByCustomer, actor.TenantID)
	if err != nil {
		return nil, err
	}
	return entity.GetExisting[models.Mod](ctx, s.entities, entity.Private(actor.TenantID), entity.TypeMod, ids)
}

// ListPublic returns the public partition's mods through the
// by-visibility index. Unauthenticated.
func (s *Service) ListPublic(ctx context.Context) ([]models.Mod, error) {
	ids, err := s.indexes.Members(ctx, entity.Public, models.IndexByVisibility, string(models.VisibilityPublic))
	if err != nil {
		return nil, err
	}
	return entity.GetExisting[models.Mod](ctx, s.entities, entity.Public, entity.TypeMod, ids)
}

// GetBySlug resolves a public mod through the by-slug index. Unauthenticated.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Mod, error) {
	modID, err := s.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, slug)
	if err != nil {
		return nil, err
	}
	var mod models.Mod
	if err := s.entities.Get(ctx, entity.Public, entity.TypeMod, modID, &mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

// Download counts a download against a public mod. The authoritative
// counter lives on the private copy; the public mirror is refreshed best
// effort and otherwise catches up on the next replication run.
func (s *Service) Download(ctx context.Context, modID string) (int64, error) {
	public, err := s.entities.Exists(ctx, entity.Public, entity.TypeMod, modID)
	if err != nil {
		return 0, err
	}
	if !public {
		return 0, apperr.New(apperr.KindNotFound, "mod %s not found", modID)
	}
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return 0, err
	}
	mod.Downloads++
	if err := s.entities.Put(ctx, entity.Private(mod.OwnerID), entity.TypeMod, mod.ID, mod); err != nil {
		return 0, err
	}
	if err := s.entities.Put(ctx, entity.Public, entity.TypeMod, mod.ID, mod.PublicView()); err != nil {
		s.logger.Debug("public download counter refresh failed", zap.String("mod_id", mod.ID), zap.Error(err))
	}
	return mod.Downloads, nil
}

// attributionName returns the display-name snapshot for an actor, falling
// back through the resolver and degrading to empty when it is unavailable.
func (s *Service) attributionName(ctx context.Context, actor *identity.Principal) string {
	if actor.DisplayName != "" {
		return actor.DisplayName
	}
	return identity.AttributionName(ctx, s.resolver, actor.TenantID)
}

// applyReplication runs the engine and absorbs partial failures: the
// primary write has landed, the gap is logged, and the reconciliation pass
// repairs the mirror. Full failures propagate.
func (s *Service) applyReplication(ctx context.Context, mod *models.Mod, prior replicate.Prior) error {
	err := s.engine.Apply(ctx, mod, prior)
	if apperr.IsKind(err, apperr.KindPartialReplication) {
		s.logger.Warn("partial replication, leaving repair to reconciliation",
			zap.String("mod_id", mod.ID), zap.Error(err))
		return nil
	}
	return err
}
