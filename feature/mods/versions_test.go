package mods

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/storage"
	"mod-registry/feature/mods/models"
)

func testUpload(filename string, size int64) UploadInput {
	return UploadInput{
		Filename: filename,
		Size:     size,
		Checksum: "sha256:test",
		Body:     bytes.NewReader(make([]byte, size)),
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)

	_, err = svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 0))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 2<<20))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.exe", 64))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("noextension", 64))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestCreateVersionRecordsEntityAndAdjacency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)

	version, err := svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 64))
	require.NoError(t, err)
	assert.Equal(t, storage.VersionKey("acme", mod.ID, version.ID, "zip"), version.BlobKey)
	assert.Equal(t, int64(64), version.FileSize)

	owner := entity.Private("acme")
	var stored models.Version
	require.NoError(t, svc.entities.Get(ctx, owner, entity.TypeVersion, version.ID, &stored))

	ids, err := svc.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{version.ID}, ids)

	// The mod is private; nothing mirrors.
	exists, err := svc.entities.Exists(ctx, entity.Public, entity.TypeVersion, version.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateVersionMirrorsWhenPublic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mod := createPublicApproved(t, svc, "Open Pack")

	version, err := svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 64))
	require.NoError(t, err)

	exists, err := svc.entities.Exists(ctx, entity.Public, entity.TypeVersion, version.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	ids, err := svc.indexes.Members(ctx, entity.Public, models.IndexVersionsFor, mod.ID)
	require.NoError(t, err)
	assert.Contains(t, ids, version.ID)
}

func TestCreateVariantRequiresMatchingVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	modA, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Pack A"})
	require.NoError(t, err)
	modB, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Pack B"})
	require.NoError(t, err)

	versionA, err := svc.CreateVersion(ctx, ownerPrincipal(), modA.ID, testUpload("v1.zip", 64))
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, ownerPrincipal(), modB.ID, versionA.ID, testUpload("alt.zip", 32))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	variant, err := svc.CreateVariant(ctx, ownerPrincipal(), modA.ID, versionA.ID, testUpload("alt.zip", 32))
	require.NoError(t, err)
	assert.Equal(t, versionA.ID, variant.CurrentVersionID)

	ids, err := svc.indexes.Members(ctx, entity.Private("acme"), models.IndexVariantsFor, versionA.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{variant.ID}, ids)
}

func TestUploadThumbnailRecordsExtension(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mod := createPublicApproved(t, svc, "Open Pack")

	updated, err := svc.UploadThumbnail(ctx, ownerPrincipal(), mod.ID, testUpload("cover.png", 128))
	require.NoError(t, err)
	assert.Equal(t, "png", updated.ThumbnailExt)

	// The refreshed public copy carries the extension too.
	var mirrored models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Public, entity.TypeMod, mod.ID, &mirrored))
	assert.Equal(t, "png", mirrored.ThumbnailExt)

	_, err = svc.UploadThumbnail(ctx, ownerPrincipal(), mod.ID, testUpload("cover.zip", 128))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestRepairVariantsRepointsDanglingPointers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := entity.Private("acme")

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)
	v1, err := svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 64))
	require.NoError(t, err)
	v2, err := svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v2.zip", 64))
	require.NoError(t, err)
	variant, err := svc.CreateVariant(ctx, ownerPrincipal(), mod.ID, v1.ID, testUpload("alt.zip", 32))
	require.NoError(t, err)

	// Simulate a crash that dropped the version entity but kept the
	// adjacency entry and the variant's pointer.
	require.NoError(t, svc.entities.Delete(ctx, owner, entity.TypeVersion, v1.ID))

	_, err = svc.RepairVariants(ctx, ownerPrincipal(), mod.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	repaired, err := svc.RepairVariants(ctx, adminPrincipal(), mod.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	var fixed models.Variant
	require.NoError(t, svc.entities.Get(ctx, owner, entity.TypeVariant, variant.ID, &fixed))
	assert.Equal(t, v2.ID, fixed.CurrentVersionID)

	ids, err := svc.indexes.Members(ctx, owner, models.IndexVariantsFor, v2.ID)
	require.NoError(t, err)
	assert.Contains(t, ids, variant.ID)
	ids, err = svc.indexes.Members(ctx, owner, models.IndexVariantsFor, v1.ID)
	require.NoError(t, err)
	assert.NotContains(t, ids, variant.ID)

	// A second run finds nothing left to fix.
	repaired, err = svc.RepairVariants(ctx, adminPrincipal(), mod.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}
