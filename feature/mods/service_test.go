package mods

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/core/identity"
	"mod-registry/core/kv"
	"mod-registry/core/storage/mocks"
	"mod-registry/feature/mods/models"
	"mod-registry/feature/mods/replicate"
)

func newTestService(t *testing.T) (*Service, *mocks.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	backend := kv.NewRedisStoreFromClient(client)

	entities := entity.NewStore(backend)
	indexes := entity.NewIndex(backend)
	store := &mocks.Client{}
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil).Maybe()

	resolver := identity.NewStaticFromTokens([]identity.Token{
		{Token: "tok-owner", TenantID: "acme", DisplayName: "Acme Ltd"},
		{Token: "tok-admin", TenantID: "staff", DisplayName: "Review Team", Admin: true},
	})
	engine := replicate.NewEngine(entities, indexes, zap.NewNop(), replicate.Options{RetractChildren: true})
	cfg := Config{MaxUploadBytes: 1 << 20, AllowedExtensions: "zip,7z", RetractChildren: true}
	svc := NewService(entities, indexes, store, "mods", resolver, engine, zap.NewNop(), cfg)
	return svc, store
}

func ownerPrincipal() *identity.Principal {
	return &identity.Principal{TenantID: "acme", DisplayName: "Acme Ltd"}
}

func adminPrincipal() *identity.Principal {
	return &identity.Principal{TenantID: "staff", DisplayName: "Review Team", Admin: true}
}

// createPublicApproved walks a fresh mod through visibility public,
// submission and approval.
func createPublicApproved(t *testing.T, svc *Service, title string) *models.Mod {
	t.Helper()
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: title, Submit: true})
	require.NoError(t, err)

	vis := "public"
	mod, err = svc.Update(ctx, ownerPrincipal(), mod.ID, UpdateInput{Visibility: &vis})
	require.NoError(t, err)

	mod, err = svc.UpdateStatus(ctx, adminPrincipal(), mod.ID, "approved", "")
	require.NoError(t, err)
	return mod
}

func TestCreateStaysPrivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, mod.Status)
	assert.Equal(t, models.VisibilityPrivate, mod.Visibility)
	assert.Equal(t, "super-pack", mod.Slug)
	assert.Equal(t, "acme", mod.OwnerID)

	var stored models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Private("acme"), entity.TypeMod, mod.ID, &stored))

	public, err := svc.entities.Exists(ctx, entity.Public, entity.TypeMod, mod.ID)
	require.NoError(t, err)
	assert.False(t, public)

	ownerID, err := svc.indexes.GetSingle(ctx, entity.Registry, models.IndexOwnerOf, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", ownerID)

	ids, err := svc.indexes.Members(ctx, entity.Registry, models.IndexByCustomer, "acme")
	require.NoError(t, err)
	assert.Contains(t, ids, mod.ID)
}

func TestCreateWithSubmitStartsPending(t *testing.T) {
	svc, _ := newTestService(t)
	mod, err := svc.Create(context.Background(), ownerPrincipal(), CreateModInput{Title: "Super Pack", Submit: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, mod.Status)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, &identity.Principal{TenantID: "globex"}, mod.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	got, err := svc.Get(ctx, adminPrincipal(), mod.ID)
	require.NoError(t, err)
	assert.Equal(t, mod.ID, got.ID)

	_, err = svc.Get(ctx, ownerPrincipal(), "no-such-mod")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestReviewDecisionsAreAdminOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack", Submit: true})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, ownerPrincipal(), mod.ID, "approved", "")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	mod, err = svc.UpdateStatus(ctx, adminPrincipal(), mod.ID, "approved", "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, mod.Status)

	require.Len(t, mod.StatusHistory, 1)
	entry := mod.StatusHistory[0]
	assert.Equal(t, models.StatusPending, entry.From)
	assert.Equal(t, models.StatusApproved, entry.To)
	assert.Equal(t, "Review Team", entry.ActorName)
	assert.Equal(t, "looks good", entry.Reason)
}

func TestIllegalTransitionIsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, adminPrincipal(), mod.ID, "approved", "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestApprovalPublishesOnlyPublicMods(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Private mod: approval alone must not mirror.
	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Hidden Pack", Submit: true})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, adminPrincipal(), mod.ID, "approved", "")
	require.NoError(t, err)
	public, err := svc.entities.Exists(ctx, entity.Public, entity.TypeMod, mod.ID)
	require.NoError(t, err)
	assert.False(t, public)

	// Public mod: approval mirrors and claims the slug.
	mod = createPublicApproved(t, svc, "Open Pack")
	public, err = svc.entities.Exists(ctx, entity.Public, entity.TypeMod, mod.ID)
	require.NoError(t, err)
	assert.True(t, public)

	members, err := svc.indexes.Members(ctx, entity.Public, models.IndexByVisibility, string(models.VisibilityPublic))
	require.NoError(t, err)
	assert.Contains(t, members, mod.ID)

	holder, err := svc.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, "open-pack")
	require.NoError(t, err)
	assert.Equal(t, mod.ID, holder)
}

func TestVisibilityFlipRetracts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod := createPublicApproved(t, svc, "Open Pack")

	vis := "private"
	_, err := svc.Update(ctx, ownerPrincipal(), mod.ID, UpdateInput{Visibility: &vis})
	require.NoError(t, err)

	public, err := svc.entities.Exists(ctx, entity.Public, entity.TypeMod, mod.ID)
	require.NoError(t, err)
	assert.False(t, public)

	_, err = svc.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, "open-pack")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// The authoritative private copy survives retraction.
	var stored models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Private("acme"), entity.TypeMod, mod.ID, &stored))
	assert.Equal(t, models.VisibilityPrivate, stored.Visibility)
}

func TestPublicationDisambiguatesSlugs(t *testing.T) {
	svc, _ := newTestService(t)

	first := createPublicApproved(t, svc, "Super Pack")
	assert.Equal(t, "super-pack", first.Slug)

	second := createPublicApproved(t, svc, "Super Pack")
	assert.Equal(t, "super-pack-2", second.Slug)
}

func TestVisibilityEntryDisambiguatesSlugs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// First holder enters the public set through approval.
	first := createPublicApproved(t, svc, "Super Pack")
	require.Equal(t, "super-pack", first.Slug)

	// Second mod is approved while private, then published by flipping
	// visibility; the boundary crossing must disambiguate, not steal.
	second, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack", Submit: true})
	require.NoError(t, err)
	second, err = svc.UpdateStatus(ctx, adminPrincipal(), second.ID, "approved", "")
	require.NoError(t, err)
	require.Equal(t, "super-pack", second.Slug)

	vis := "public"
	second, err = svc.Update(ctx, ownerPrincipal(), second.ID, UpdateInput{Visibility: &vis})
	require.NoError(t, err)
	assert.Equal(t, "super-pack-2", second.Slug)

	holder, err := svc.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, "super-pack")
	require.NoError(t, err)
	assert.Equal(t, first.ID, holder)

	holder, err = svc.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, "super-pack-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, holder)
}

func TestPublicMirrorOmitsReviewInternals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod := createPublicApproved(t, svc, "Open Pack")
	_, err := svc.AddComment(ctx, adminPrincipal(), mod.ID, "tighten the description")
	require.NoError(t, err)

	// A metadata patch while public runs the refresh path.
	category := "tools"
	_, err = svc.Update(ctx, ownerPrincipal(), mod.ID, UpdateInput{Category: &category})
	require.NoError(t, err)

	got, err := svc.GetBySlug(ctx, "open-pack")
	require.NoError(t, err)
	assert.Empty(t, got.StatusHistory)
	assert.Empty(t, got.ReviewComments)

	var public models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Public, entity.TypeMod, mod.ID, &public))
	assert.Empty(t, public.StatusHistory)
	assert.Empty(t, public.ReviewComments)

	// The authoritative private copy keeps the full record.
	var private models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Private("acme"), entity.TypeMod, mod.ID, &private))
	assert.NotEmpty(t, private.StatusHistory)
	require.Len(t, private.ReviewComments, 1)
}

func TestRenameToTakenSlugWhilePublicConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createPublicApproved(t, svc, "Super Pack")
	mod := createPublicApproved(t, svc, "Other Pack")

	title := "Super Pack"
	_, err := svc.Update(ctx, ownerPrincipal(), mod.ID, UpdateInput{Title: &title})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCommentAttributionFallsBackToResolver(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Super Pack"})
	require.NoError(t, err)

	// Principal without a display name resolves through the identity table.
	comment, err := svc.AddComment(ctx, &identity.Principal{TenantID: "acme"}, mod.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", comment.ActorName)

	// An unresolvable actor degrades to an empty snapshot, not an error.
	comment, err = svc.AddComment(ctx, &identity.Principal{TenantID: "ghost", Admin: true}, mod.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "", comment.ActorName)

	_, err = svc.AddComment(ctx, ownerPrincipal(), mod.ID, "   ")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestDeleteRemovesEverything(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod := createPublicApproved(t, svc, "Super Pack")
	version, err := svc.CreateVersion(ctx, ownerPrincipal(), mod.ID, testUpload("v1.zip", 64))
	require.NoError(t, err)
	variant, err := svc.CreateVariant(ctx, ownerPrincipal(), mod.ID, version.ID, testUpload("alt.zip", 32))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ownerPrincipal(), mod.ID))

	owner := entity.Private("acme")
	for _, check := range []struct {
		p   entity.Partition
		typ entity.Type
		id  string
	}{
		{owner, entity.TypeMod, mod.ID},
		{owner, entity.TypeVersion, version.ID},
		{owner, entity.TypeVariant, variant.ID},
		{entity.Public, entity.TypeMod, mod.ID},
		{entity.Public, entity.TypeVersion, version.ID},
		{entity.Public, entity.TypeVariant, variant.ID},
	} {
		exists, err := svc.entities.Exists(ctx, check.p, check.typ, check.id)
		require.NoError(t, err)
		assert.False(t, exists, "%s/%s/%s should be gone", check.p, check.typ, check.id)
	}

	_, err = svc.indexes.GetSingle(ctx, entity.Registry, models.IndexOwnerOf, mod.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	ids, err := svc.indexes.Members(ctx, entity.Registry, models.IndexByCustomer, "acme")
	require.NoError(t, err)
	assert.NotContains(t, ids, mod.ID)

	_, err = svc.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, "super-pack")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	versions, err := svc.indexes.Members(ctx, owner, models.IndexVersionsFor, mod.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestDownloadCountsAgainstPublicMods(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	private, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Hidden Pack"})
	require.NoError(t, err)
	_, err = svc.Download(ctx, private.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	mod := createPublicApproved(t, svc, "Open Pack")
	n, err := svc.Download(ctx, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = svc.Download(ctx, mod.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Both copies carry the counter.
	var stored models.Mod
	require.NoError(t, svc.entities.Get(ctx, entity.Private("acme"), entity.TypeMod, mod.ID, &stored))
	assert.Equal(t, int64(2), stored.Downloads)
	require.NoError(t, svc.entities.Get(ctx, entity.Public, entity.TypeMod, mod.ID, &stored))
	assert.Equal(t, int64(2), stored.Downloads)
}

func TestListPublicAndGetBySlug(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mod := createPublicApproved(t, svc, "Open Pack")
	_, err := svc.Create(ctx, ownerPrincipal(), CreateModInput{Title: "Hidden Pack"})
	require.NoError(t, err)

	listed, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mod.ID, listed[0].ID)

	got, err := svc.GetBySlug(ctx, "open-pack")
	require.NoError(t, err)
	assert.Equal(t, mod.ID, got.ID)

	_, err = svc.GetBySlug(ctx, "hidden-pack")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
