package blobs

import (
	"context"

	"github.com/minio/minio-go/v7"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/reconcile"
	"mod-registry/core/storage"
	"mod-registry/feature/mods/models"
)

// scanAdapter feeds the reconciliation engine: the expected index comes
// from walking the owner-of pointer index and each mod's adjacency lists,
// the blob index from enumerating the bucket.
type scanAdapter struct {
	svc *Service
}

func (s *Service) adapter() reconcile.Adapter {
	return &scanAdapter{svc: s}
}

func (a *scanAdapter) Name() string { return "blobs" }

// LoadExpectedIndex derives every blob key the entity graph accounts for.
// A mod without a recorded thumbnail extension claims the key under every
// plausible extension, so an actual thumbnail in any format is covered.
func (a *scanAdapter) LoadExpectedIndex(ctx context.Context) (map[string]reconcile.EntityRef, error) {
	s := a.svc
	owners, err := s.indexes.EntriesSingle(ctx, entity.Registry, models.IndexOwnerOf)
	if err != nil {
		return nil, err
	}

	expected := make(map[string]reconcile.EntityRef)
	for modID, tenantID := range owners {
		owner := entity.Private(tenantID)
		var mod models.Mod
		err := s.entities.Get(ctx, owner, entity.TypeMod, modID, &mod)
		if apperr.IsKind(err, apperr.KindNotFound) {
			// A dangling owner pointer claims no blobs.
			continue
		}
		if err != nil {
			return nil, err
		}

		claim := func(key string, typ entity.Type, id string) {
			expected[key] = reconcile.EntityRef{
				Type:      string(typ),
				ID:        id,
				ModID:     mod.ID,
				TenantID:  tenantID,
				Status:    string(mod.Status),
				Downloads: mod.Downloads,
				UpdatedAt: mod.UpdatedAt,
			}
		}

		exts := storage.ThumbnailExtensions
		if mod.ThumbnailExt != "" {
			exts = []string{mod.ThumbnailExt}
		}
		for _, ext := range exts {
			claim(storage.ThumbnailKey(tenantID, mod.ID, ext), entity.TypeMod, mod.ID)
		}

		versionIDs, err := s.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
		if err != nil {
			return nil, err
		}
		versions, err := entity.GetExisting[models.Version](ctx, s.entities, owner, entity.TypeVersion, versionIDs)
		if err != nil {
			return nil, err
		}
		for _, version := range versions {
			claim(version.BlobKey, entity.TypeVersion, version.ID)

			variantIDs, err := s.indexes.Members(ctx, owner, models.IndexVariantsFor, version.ID)
			if err != nil {
				return nil, err
			}
			variants, err := entity.GetExisting[models.Variant](ctx, s.entities, owner, entity.TypeVariant, variantIDs)
			if err != nil {
				return nil, err
			}
			for _, variant := range variants {
				claim(variant.BlobKey, entity.TypeVariant, variant.ID)
			}
		}
	}
	return expected, nil
}

// LoadBlobIndex enumerates the bucket with metadata.
func (a *scanAdapter) LoadBlobIndex(ctx context.Context) (map[string]reconcile.BlobInfo, error) {
	s := a.svc
	blobs := make(map[string]reconcile.BlobInfo)
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive:    true,
		WithMetadata: true,
	}) {
		if info.Err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, info.Err, "enumerate blobs")
		}
		marked, _ := markedForDeletion(info.UserMetadata)
		blobs[info.Key] = reconcile.BlobInfo{
			Key:               info.Key,
			Size:              info.Size,
			LastModified:      info.LastModified,
			MarkedForDeletion: marked,
		}
	}
	return blobs, nil
}
