package replicate

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/feature/mods/models"
)

// Options control engine behavior.
type Options struct {
	// RetractChildren selects whether public copies of versions and
	// variants are deleted when a mod leaves the public partition.
	// Deletion is the default; the toggle exists so both policies stay
	// observable and testable.
	RetractChildren bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{RetractChildren: true}
}

// Prior is the pre-transition status/visibility/slug of a mod. The caller
// must supply it: the engine never infers prior state from partition reads,
// because partition contents may already be inconsistent from an earlier
// partial failure.
type Prior struct {
	Status     models.Status
	Visibility models.Visibility
	Slug       string
}

// PriorOf captures a mod's current state before the caller mutates it.
func PriorOf(m *models.Mod) Prior {
	return Prior{Status: m.Status, Visibility: m.Visibility, Slug: m.Slug}
}

// Public reports whether the prior state had the mod in the public
// partition. Callers use it to detect a publication-boundary crossing
// before handing the mutated mod to Apply.
func (p Prior) Public() bool {
	return p.Visibility == models.VisibilityPublic && p.Status.IsLive()
}

// Engine converges the private and public partitions after a status or
// visibility change. It drives entity and index writes in an order with a
// defined safe-partial-failure direction (entity before index on mirror,
// unindex before delete on retraction); there are no transactions.
type Engine struct {
	entities *entity.Store
	indexes  *entity.Index
	logger   *zap.Logger
	opts     Options
}

// NewEngine creates a replication engine.
func NewEngine(entities *entity.Store, indexes *entity.Index, logger *zap.Logger, opts Options) *Engine {
	return &Engine{entities: entities, indexes: indexes, logger: logger, opts: opts}
}

// Apply converges the partitions for a mod whose in-memory state already
// reflects the transition, given the caller-supplied prior state.
//
// The authoritative private-partition copy is always written last, under
// the original owner's partition key, never an acting admin's. Mirror and
// index step failures never roll the primary write back: they are
// accumulated, logged, and surfaced as a PartialReplication error for the
// reconciliation pass to repair.
func (e *Engine) Apply(ctx context.Context, mod *models.Mod, prior Prior) error {
	shouldBePublic := mod.ShouldBePublic()
	wasPublic := prior.Public()

	var stepErrs error
	switch {
	case shouldBePublic && !wasPublic:
		stepErrs = e.mirror(ctx, mod)
	case wasPublic && !shouldBePublic:
		stepErrs = e.retract(ctx, mod, prior.Slug, e.opts.RetractChildren)
	case shouldBePublic && wasPublic:
		stepErrs = e.refresh(ctx, mod, prior)
	}

	if err := e.entities.Put(ctx, entity.Private(mod.OwnerID), entity.TypeMod, mod.ID, mod); err != nil {
		return multierr.Append(stepErrs, err)
	}

	if stepErrs != nil {
		e.logger.Warn("replication completed partially",
			zap.String("mod_id", mod.ID),
			zap.Bool("should_be_public", shouldBePublic),
			zap.Bool("was_public", wasPublic),
			zap.Error(stepErrs),
		)
		return apperr.Wrap(apperr.KindPartialReplication, stepErrs, "mod %s", mod.ID)
	}
	return nil
}

// mirror copies the mod's public view and every reachable version/variant
// into the public partition. Each entity is written before its index
// entry, so a crash mid-mirror never leaves an index entry pointing at
// nothing.
func (e *Engine) mirror(ctx context.Context, mod *models.Mod) error {
	var errs error

	if err := e.entities.Put(ctx, entity.Public, entity.TypeMod, mod.ID, mod.PublicView()); err != nil {
		// Without the public entity the indexes must not be written.
		return multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, e.indexes.Add(ctx, entity.Public, models.IndexByVisibility, string(models.VisibilityPublic), mod.ID))
	errs = multierr.Append(errs, e.indexes.SetSingle(ctx, entity.Public, models.IndexBySlug, mod.Slug, mod.ID, true))

	errs = multierr.Append(errs, e.SyncChildren(ctx, mod))
	return errs
}

// SyncChildren mirrors every version and variant reachable from the mod
// into the public partition. Reads child ids from the owner's adjacency
// indexes, fetches each, writes each; not an atomic batch. Idempotent.
func (e *Engine) SyncChildren(ctx context.Context, mod *models.Mod) error {
	owner := entity.Private(mod.OwnerID)
	var errs error

	versionIDs, err := e.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	if err != nil {
		return err
	}
	versions, err := entity.GetExisting[models.Version](ctx, e.entities, owner, entity.TypeVersion, versionIDs)
	if err != nil {
		return err
	}

	for _, v := range versions {
		if err := e.entities.Put(ctx, entity.Public, entity.TypeVersion, v.ID, v); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, e.indexes.Add(ctx, entity.Public, models.IndexVersionsFor, mod.ID, v.ID))

		variantIDs, err := e.indexes.Members(ctx, owner, models.IndexVariantsFor, v.ID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		variants, err := entity.GetExisting[models.Variant](ctx, e.entities, owner, entity.TypeVariant, variantIDs)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, va := range variants {
			if err := e.entities.Put(ctx, entity.Public, entity.TypeVariant, va.ID, va); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			errs = multierr.Append(errs, e.indexes.Add(ctx, entity.Public, models.IndexVariantsFor, v.ID, va.ID))
		}
	}
	return errs
}

// retract removes the mod from the public partition: indexes first, entity
// last, so a crash mid-retraction leaves at worst a dangling entity that
// is absent from the indexes.
func (e *Engine) retract(ctx context.Context, mod *models.Mod, priorSlug string, children bool) error {
	var errs error

	errs = multierr.Append(errs, e.indexes.Remove(ctx, entity.Public, models.IndexByVisibility, string(models.VisibilityPublic), mod.ID))
	errs = multierr.Append(errs, e.deleteSlugIfOwned(ctx, priorSlug, mod.ID))

	if children {
		errs = multierr.Append(errs, e.retractChildren(ctx, mod))
	}

	errs = multierr.Append(errs, e.entities.Delete(ctx, entity.Public, entity.TypeMod, mod.ID))
	return errs
}

// Retract force-removes a mod and, when children is true, all its
// version/variant copies from the public partition, ignoring the
// configured retraction policy. Used by the delete path, where delete
// completeness always wins.
func (e *Engine) Retract(ctx context.Context, mod *models.Mod, children bool) error {
	return e.retract(ctx, mod, mod.Slug, children)
}

func (e *Engine) retractChildren(ctx context.Context, mod *models.Mod) error {
	owner := entity.Private(mod.OwnerID)
	var errs error

	versionIDs, err := e.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	if err != nil {
		return err
	}
	for _, vid := range versionIDs {
		variantIDs, err := e.indexes.Members(ctx, owner, models.IndexVariantsFor, vid)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		for _, vaid := range variantIDs {
			errs = multierr.Append(errs, e.indexes.Remove(ctx, entity.Public, models.IndexVariantsFor, vid, vaid))
			errs = multierr.Append(errs, e.entities.Delete(ctx, entity.Public, entity.TypeVariant, vaid))
		}
		errs = multierr.Append(errs, e.indexes.Remove(ctx, entity.Public, models.IndexVersionsFor, mod.ID, vid))
		errs = multierr.Append(errs, e.entities.Delete(ctx, entity.Public, entity.TypeVersion, vid))
	}
	return errs
}

// refresh keeps an already-public mod's mirror current: republish the
// public view, swap the slug entry if it changed, re-sync children.
func (e *Engine) refresh(ctx context.Context, mod *models.Mod, prior Prior) error {
	var errs error

	if err := e.entities.Put(ctx, entity.Public, entity.TypeMod, mod.ID, mod.PublicView()); err != nil {
		return multierr.Append(errs, err)
	}
	if prior.Slug != mod.Slug {
		// New entry before removing the old one: a crash in between leaves
		// two entries resolving to the mod, never zero.
		errs = multierr.Append(errs, e.indexes.SetSingle(ctx, entity.Public, models.IndexBySlug, mod.Slug, mod.ID, true))
		errs = multierr.Append(errs, e.deleteSlugIfOwned(ctx, prior.Slug, mod.ID))
	} else {
		errs = multierr.Append(errs, e.indexes.SetSingle(ctx, entity.Public, models.IndexBySlug, mod.Slug, mod.ID, true))
	}
	errs = multierr.Append(errs, e.SyncChildren(ctx, mod))
	return errs
}

// deleteSlugIfOwned removes a by-slug entry only while it still points at
// the given mod, so a racing writer's fresh claim is not clobbered.
func (e *Engine) deleteSlugIfOwned(ctx context.Context, slug, modID string) error {
	if slug == "" {
		return nil
	}
	holder, err := e.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, slug)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if holder != modID {
		return nil
	}
	return e.indexes.DeleteSingle(ctx, entity.Public, models.IndexBySlug, slug)
}
