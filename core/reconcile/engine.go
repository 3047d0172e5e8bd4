package reconcile

import (
	"context"
	"sort"
)

// ScanAll performs a full scan across the blob store and the entity graph.
// It loads both indices, reports every blob no entity accounts for, and
// groups remaining blobs by byte size into duplicate candidate groups.
func ScanAll(ctx context.Context, spec *Spec) (*Report, error) {
	var (
		cache *ScanCache
		err   error
	)

	if spec.CacheTTL > 0 {
		cache, err = GetOrBuildCache(ctx, spec)
	} else {
		cache, err = BuildCache(ctx, spec)
	}
	if err != nil {
		return nil, err
	}

	orphans := findOrphans(cache.Expected, cache.Blobs)
	duplicates := findDuplicates(cache.Expected, cache.Blobs)

	return &Report{
		Orphans:    orphans,
		Duplicates: duplicates,
		Summary: Summary{
			TotalBlobs:      len(cache.Blobs),
			ExpectedKeys:    len(cache.Expected),
			Orphans:         len(orphans),
			DuplicateGroups: len(duplicates),
		},
	}, nil
}

// findOrphans returns every blob key absent from the expected index,
// sorted for deterministic output.
func findOrphans(expected map[string]EntityRef, blobs map[string]BlobInfo) []string {
	orphans := make([]string, 0)
	for key := range blobs {
		if _, ok := expected[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// findDuplicates groups blobs by byte size and scores each group's members.
// Groups are sorted by size ascending; members by score descending.
func findDuplicates(expected map[string]EntityRef, blobs map[string]BlobInfo) []DuplicateGroup {
	bySize := make(map[int64][]BlobInfo)
	for _, info := range blobs {
		bySize[info.Size] = append(bySize[info.Size], info)
	}

	groups := make([]DuplicateGroup, 0)
	for size, members := range bySize {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, buildGroup(size, members, expected))
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Size < groups[j].Size
	})

	return groups
}

// buildGroup scores one same-size group and picks the recommended survivor.
func buildGroup(size int64, members []BlobInfo, expected map[string]EntityRef) DuplicateGroup {
	scored := make([]DuplicateMember, 0, len(members))
	for _, info := range members {
		ref, owned := expected[info.Key]
		scored = append(scored, DuplicateMember{
			Key:          info.Key,
			Score:        scoreMember(info, ref, owned),
			Orphan:       !owned,
			Status:       ref.Status,
			Downloads:    ref.Downloads,
			LastModified: info.LastModified,
		})
	}

	// Highest score first; same-day ties broken by exact recency, then key
	// for determinism.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].LastModified.Equal(scored[j].LastModified) {
			return scored[i].LastModified.After(scored[j].LastModified)
		}
		return scored[i].Key < scored[j].Key
	})

	return DuplicateGroup{
		Size:    size,
		Members: scored,
		Keep:    scored[0].Key,
	}
}

// scoreMember ranks a blob within its group. Ownership carries the highest
// weight, then status rank, then downloads, then recency: each factor can
// only separate members that tie on every factor above it.
func scoreMember(info BlobInfo, ref EntityRef, owned bool) int64 {
	var score int64
	if owned {
		score += 1_000_000_000_000
		score += statusRank(ref.Status) * 10_000_000_000

		downloads := ref.Downloads
		if downloads > 9_999 {
			downloads = 9_999
		}
		score += downloads * 100_000
	}

	days := info.LastModified.Unix() / 86_400
	if days < 0 {
		days = 0
	}
	if days > 99_999 {
		days = 99_999
	}
	return score + days
}

// statusRank orders review statuses by how costly losing the blob would be.
func statusRank(status string) int64 {
	switch status {
	case "published":
		return 3
	case "approved":
		return 2
	case "pending":
		return 1
	default:
		return 0
	}
}
