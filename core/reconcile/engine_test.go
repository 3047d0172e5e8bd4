package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter serves fixed indices for tests.
type fakeAdapter struct {
	name     string
	expected map[string]EntityRef
	blobs    map[string]BlobInfo
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) LoadExpectedIndex(ctx context.Context) (map[string]EntityRef, error) {
	return f.expected, nil
}

func (f *fakeAdapter) LoadBlobIndex(ctx context.Context) (map[string]BlobInfo, error) {
	return f.blobs, nil
}

func ts(day int) time.Time {
	return time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
}

func TestScanAllReportsOrphans(t *testing.T) {
	adapter := &fakeAdapter{
		name: "orphans",
		expected: map[string]EntityRef{
			"acme/versions/mod-1/ver-1.zip": {Type: "version", ID: "ver-1", ModID: "mod-1", TenantID: "acme"},
		},
		blobs: map[string]BlobInfo{
			"acme/versions/mod-1/ver-1.zip": {Key: "acme/versions/mod-1/ver-1.zip", Size: 100, LastModified: ts(1)},
			"acme/versions/mod-9/ver-9.zip": {Key: "acme/versions/mod-9/ver-9.zip", Size: 200, LastModified: ts(2)},
			"acme/thumbnails/mod-9.png":     {Key: "acme/thumbnails/mod-9.png", Size: 300, LastModified: ts(3)},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"acme/thumbnails/mod-9.png",
		"acme/versions/mod-9/ver-9.zip",
	}, report.Orphans)
	assert.Equal(t, 3, report.Summary.TotalBlobs)
	assert.Equal(t, 1, report.Summary.ExpectedKeys)
	assert.Equal(t, 2, report.Summary.Orphans)
}

func TestScanAllGroupsDuplicatesBySize(t *testing.T) {
	adapter := &fakeAdapter{
		name: "dupes",
		expected: map[string]EntityRef{
			"acme/versions/mod-1/ver-1.zip": {Type: "version", ID: "ver-1", ModID: "mod-1", Status: "published", Downloads: 50},
			"acme/versions/mod-2/ver-2.zip": {Type: "version", ID: "ver-2", ModID: "mod-2", Status: "pending", Downloads: 900},
		},
		blobs: map[string]BlobInfo{
			"acme/versions/mod-1/ver-1.zip": {Key: "acme/versions/mod-1/ver-1.zip", Size: 4096, LastModified: ts(1)},
			"acme/versions/mod-2/ver-2.zip": {Key: "acme/versions/mod-2/ver-2.zip", Size: 4096, LastModified: ts(2)},
			"acme/versions/mod-3/ver-3.zip": {Key: "acme/versions/mod-3/ver-3.zip", Size: 4096, LastModified: ts(3)},
			"acme/thumbnails/mod-1.png":     {Key: "acme/thumbnails/mod-1.png", Size: 512, LastModified: ts(1)},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)

	group := report.Duplicates[0]
	assert.Equal(t, int64(4096), group.Size)
	require.Len(t, group.Members, 3)

	// Published outranks pending despite fewer downloads; the orphan is
	// last, its score below every owned member's regardless of recency.
	assert.Equal(t, "acme/versions/mod-1/ver-1.zip", group.Keep)
	assert.Equal(t, "acme/versions/mod-2/ver-2.zip", group.Members[1].Key)
	assert.Equal(t, "acme/versions/mod-3/ver-3.zip", group.Members[2].Key)
	assert.True(t, group.Members[2].Orphan)
	assert.Less(t, group.Members[2].Score, group.Members[1].Score)
}

func TestScanAllDownloadsBreakStatusTies(t *testing.T) {
	adapter := &fakeAdapter{
		name: "downloads",
		expected: map[string]EntityRef{
			"a/versions/m1/v1.zip": {Status: "approved", Downloads: 10},
			"b/versions/m2/v2.zip": {Status: "approved", Downloads: 200},
		},
		blobs: map[string]BlobInfo{
			"a/versions/m1/v1.zip": {Key: "a/versions/m1/v1.zip", Size: 7, LastModified: ts(9)},
			"b/versions/m2/v2.zip": {Key: "b/versions/m2/v2.zip", Size: 7, LastModified: ts(1)},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, "b/versions/m2/v2.zip", report.Duplicates[0].Keep)
}

func TestScanAllRecencySeparatesOtherwiseEqualMembers(t *testing.T) {
	adapter := &fakeAdapter{
		name: "recency",
		expected: map[string]EntityRef{
			"a/versions/m1/v1.zip": {Status: "approved", Downloads: 10},
			"b/versions/m2/v2.zip": {Status: "approved", Downloads: 10},
		},
		blobs: map[string]BlobInfo{
			"a/versions/m1/v1.zip": {Key: "a/versions/m1/v1.zip", Size: 7, LastModified: ts(1)},
			"b/versions/m2/v2.zip": {Key: "b/versions/m2/v2.zip", Size: 7, LastModified: ts(5)},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)

	// Recency is part of the score, at the lowest weight: equal ownership,
	// status and downloads leave the newer member strictly ahead.
	group := report.Duplicates[0]
	assert.Equal(t, "b/versions/m2/v2.zip", group.Keep)
	assert.Greater(t, group.Members[0].Score, group.Members[1].Score)
}

func TestScanAllRecencyOrdersOrphans(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "orphan-recency",
		expected: map[string]EntityRef{},
		blobs: map[string]BlobInfo{
			"a/versions/m1/v1.zip": {Key: "a/versions/m1/v1.zip", Size: 7, LastModified: ts(1)},
			"b/versions/m2/v2.zip": {Key: "b/versions/m2/v2.zip", Size: 7, LastModified: ts(5)},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, "b/versions/m2/v2.zip", report.Duplicates[0].Keep)
}

func TestScanAllSingletonSizesAreNotDuplicates(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "singletons",
		expected: map[string]EntityRef{},
		blobs: map[string]BlobInfo{
			"a/versions/m1/v1.zip": {Key: "a/versions/m1/v1.zip", Size: 1},
			"b/versions/m2/v2.zip": {Key: "b/versions/m2/v2.zip", Size: 2},
		},
	}

	report, err := ScanAll(context.Background(), &Spec{Adapter: adapter})
	require.NoError(t, err)
	assert.Empty(t, report.Duplicates)
	assert.Equal(t, 0, report.Summary.DuplicateGroups)
}

func TestCacheExpiry(t *testing.T) {
	cache := &ScanCache{Built: time.Now(), TTL: time.Hour}
	assert.False(t, cache.IsExpired())

	cache.Built = time.Now().Add(-2 * time.Hour)
	assert.True(t, cache.IsExpired())

	// Zero TTL disables caching entirely.
	cache = &ScanCache{Built: time.Now(), TTL: 0}
	assert.True(t, cache.IsExpired())
}

func TestGetOrBuildCacheReusesFreshCache(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "cache-reuse",
		expected: map[string]EntityRef{},
		blobs:    map[string]BlobInfo{"k": {Key: "k", Size: 1}},
	}
	spec := &Spec{Adapter: adapter, CacheTTL: time.Hour}
	defer InvalidateCache(spec)

	first, err := GetOrBuildCache(context.Background(), spec)
	require.NoError(t, err)

	// Mutating the adapter must not affect cached results within the TTL.
	adapter.blobs = map[string]BlobInfo{}

	second, err := GetOrBuildCache(context.Background(), spec)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, second.Blobs, 1)

	InvalidateCache(spec)

	third, err := GetOrBuildCache(context.Background(), spec)
	require.NoError(t, err)
	assert.Empty(t, third.Blobs)
}
