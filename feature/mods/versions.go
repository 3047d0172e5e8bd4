package mods

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/identity"
	"mod-registry/core/storage"
	"mod-registry/feature/mods/models"
	"mod-registry/feature/mods/replicate"
)

// UploadInput carries an incoming file.
type UploadInput struct {
	Filename string
	Size     int64
	Checksum string
	Body     io.Reader
}

// validateUpload enforces the size cap and extension allow-list before any
// blob write.
func (s *Service) validateUpload(in UploadInput, allowed map[string]bool) (ext string, err error) {
	if in.Size <= 0 {
		return "", apperr.New(apperr.KindInvalidInput, "upload size must be positive")
	}
	if in.Size > s.cfg.MaxUploadBytes {
		return "", apperr.New(apperr.KindInvalidInput, "upload exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	ext = strings.ToLower(strings.TrimPrefix(path.Ext(in.Filename), "."))
	if ext == "" || !allowed[ext] {
		return "", apperr.New(apperr.KindInvalidInput, "file extension %q is not allowed", ext)
	}
	return ext, nil
}

// CreateVersion uploads a version file and records the version entity.
// The blob is written first, then the entity, then the adjacency index, so
// a crash leaves at worst an orphaned blob for the scanner to collect.
func (s *Service) CreateVersion(ctx context.Context, actor *identity.Principal, modID string, in UploadInput) (*models.Version, error) {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}
	ext, err := s.validateUpload(in, s.cfg.allowedExtensionSet())
	if err != nil {
		return nil, err
	}

	version := &models.Version{
		ID:          uuid.NewString(),
		ParentModID: mod.ID,
		FileSize:    in.Size,
		Checksum:    in.Checksum,
		CreatedAt:   s.now(),
	}
	version.BlobKey = storage.VersionKey(mod.OwnerID, mod.ID, version.ID, ext)

	if _, err := s.client.PutObject(ctx, s.bucket, version.BlobKey, in.Body, in.Size, minio.PutObjectOptions{}); err != nil {
		return nil, err
	}

	owner := entity.Private(mod.OwnerID)
	if err := s.entities.Put(ctx, owner, entity.TypeVersion, version.ID, version); err != nil {
		return nil, err
	}
	if err := s.indexes.Add(ctx, owner, models.IndexVersionsFor, mod.ID, version.ID); err != nil {
		return nil, err
	}

	if mod.ShouldBePublic() {
		if err := s.engine.SyncChildren(ctx, mod); err != nil {
			s.logger.Warn("version mirror incomplete", zap.String("mod_id", mod.ID), zap.Error(err))
		}
	}
	return version, nil
}

// CreateVariant uploads an alternate build attached to an existing version.
func (s *Service) CreateVariant(ctx context.Context, actor *identity.Principal, modID, versionID string, in UploadInput) (*models.Variant, error) {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}

	owner := entity.Private(mod.OwnerID)
	var version models.Version
	if err := s.entities.Get(ctx, owner, entity.TypeVersion, versionID, &version); err != nil {
		return nil, err
	}
	if version.ParentModID != mod.ID {
		return nil, apperr.New(apperr.KindInvalidInput, "version %s does not belong to mod %s", versionID, modID)
	}

	ext, err := s.validateUpload(in, s.cfg.allowedExtensionSet())
	if err != nil {
		return nil, err
	}

	variant := &models.Variant{
		ID:               uuid.NewString(),
		ParentModID:      mod.ID,
		CurrentVersionID: version.ID,
		FileSize:         in.Size,
		Checksum:         in.Checksum,
		CreatedAt:        s.now(),
	}
	variant.BlobKey = storage.VariantKey(mod.OwnerID, mod.ID, variant.ID, ext)

	if _, err := s.client.PutObject(ctx, s.bucket, variant.BlobKey, in.Body, in.Size, minio.PutObjectOptions{}); err != nil {
		return nil, err
	}
	if err := s.entities.Put(ctx, owner, entity.TypeVariant, variant.ID, variant); err != nil {
		return nil, err
	}
	if err := s.indexes.Add(ctx, owner, models.IndexVariantsFor, version.ID, variant.ID); err != nil {
		return nil, err
	}

	if mod.ShouldBePublic() {
		if err := s.engine.SyncChildren(ctx, mod); err != nil {
			s.logger.Warn("variant mirror incomplete", zap.String("mod_id", mod.ID), zap.Error(err))
		}
	}
	return variant, nil
}

// UploadThumbnail stores the mod's listing image. Thumbnail keys are
// derived from the mod id, so the blob is protected against deletion for
// as long as the mod lives.
func (s *Service) UploadThumbnail(ctx context.Context, actor *identity.Principal, modID string, in UploadInput) (*models.Mod, error) {
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, mod) {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of mod %s", modID)
	}

	thumbExts := make(map[string]bool, len(storage.ThumbnailExtensions))
	for _, e := range storage.ThumbnailExtensions {
		thumbExts[e] = true
	}
	ext, err := s.validateUpload(in, thumbExts)
	if err != nil {
		return nil, err
	}

	key := storage.ThumbnailKey(mod.OwnerID, mod.ID, ext)
	if _, err := s.client.PutObject(ctx, s.bucket, key, in.Body, in.Size, minio.PutObjectOptions{}); err != nil {
		return nil, err
	}

	prior := replicate.PriorOf(mod)
	mod.ThumbnailExt = ext
	mod.UpdatedAt = s.now()
	if err := s.applyReplication(ctx, mod, prior); err != nil {
		return nil, err
	}
	return mod, nil
}

// RepairVariants re-points variants whose current-version pointer no
// longer references an existing version. The replacement is the mod's
// newest surviving version. Admin-only. Returns the number repaired.
func (s *Service) RepairVariants(ctx context.Context, actor *identity.Principal, modID string) (int, error) {
	if !actor.Admin {
		return 0, apperr.New(apperr.KindForbidden, "variant repair requires admin")
	}
	mod, err := s.getOwned(ctx, modID)
	if err != nil {
		return 0, err
	}

	owner := entity.Private(mod.OwnerID)
	versionIDs, err := s.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	if err != nil {
		return 0, err
	}
	versions, err := entity.GetExisting[models.Version](ctx, s.entities, owner, entity.TypeVersion, versionIDs)
	if err != nil {
		return 0, err
	}

	live := make(map[string]bool, len(versions))
	var newest *models.Version
	for i := range versions {
		live[versions[i].ID] = true
		if newest == nil || versions[i].CreatedAt.After(newest.CreatedAt) {
			newest = &versions[i]
		}
	}

	repaired := 0
	for _, vid := range versionIDs {
		variantIDs, err := s.indexes.Members(ctx, owner, models.IndexVariantsFor, vid)
		if err != nil {
			return repaired, err
		}
		variants, err := entity.GetExisting[models.Variant](ctx, s.entities, owner, entity.TypeVariant, variantIDs)
		if err != nil {
			return repaired, err
		}
		for _, va := range variants {
			if live[va.CurrentVersionID] {
				continue
			}
			if newest == nil {
				// No surviving version to re-point at; leave the variant
				// for the delete path.
				continue
			}
			old := va.CurrentVersionID
			va.CurrentVersionID = newest.ID
			// Entity first, then the new adjacency entry, then drop the
			// stale one.
			if err := s.entities.Put(ctx, owner, entity.TypeVariant, va.ID, &va); err != nil {
				return repaired, err
			}
			if err := s.indexes.Add(ctx, owner, models.IndexVariantsFor, newest.ID, va.ID); err != nil {
				return repaired, err
			}
			if err := s.indexes.Remove(ctx, owner, models.IndexVariantsFor, old, va.ID); err != nil {
				return repaired, err
			}
			repaired++
		}
	}

	if repaired > 0 && mod.ShouldBePublic() {
		if err := s.engine.SyncChildren(ctx, mod); err != nil {
			s.logger.Warn("variant repair mirror incomplete", zap.String("mod_id", mod.ID), zap.Error(err))
		}
	}
	return repaired, nil
}
