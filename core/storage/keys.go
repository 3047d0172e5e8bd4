package storage

import (
	"fmt"
	"strings"
)

// Blob keys embed the owning tenant id as a path prefix, a category
// segment, and the entity id plus extension:
//
//	<tenantID>/thumbnails/<modID>.<ext>
//	<tenantID>/versions/<modID>/<versionID>.<ext>
//	<tenantID>/variants/<modID>/<variantID>.<ext>

const (
	CategoryThumbnails = "thumbnails"
	CategoryVersions   = "versions"
	CategoryVariants   = "variants"
)

// ThumbnailExtensions are the plausible thumbnail formats. The extension is
// not always recorded on the entity, so consumers reconstructing expected
// keys try each of these.
var ThumbnailExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}

// ThumbnailKey builds the blob key for a mod's thumbnail.
func ThumbnailKey(tenantID, modID, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", tenantID, CategoryThumbnails, modID, ext)
}

// VersionKey builds the blob key for a version file.
func VersionKey(tenantID, modID, versionID, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", tenantID, CategoryVersions, modID, versionID, ext)
}

// VariantKey builds the blob key for a variant file.
func VariantKey(tenantID, modID, variantID, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", tenantID, CategoryVariants, modID, variantID, ext)
}

// KeyRef is a blob key decomposed into its owning-entity reference.
type KeyRef struct {
	TenantID string
	Category string
	ModID    string
	EntityID string
	Ext      string
}

// ParseKey decomposes a blob key into its reference parts. It returns
// false for keys that do not follow the layout.
func ParseKey(key string) (KeyRef, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return KeyRef{}, false
	}

	ref := KeyRef{TenantID: parts[0], Category: parts[1]}
	last := parts[len(parts)-1]
	if dot := strings.LastIndex(last, "."); dot > 0 {
		ref.Ext = last[dot+1:]
		last = last[:dot]
	}

	switch ref.Category {
	case CategoryThumbnails:
		if len(parts) != 3 {
			return KeyRef{}, false
		}
		ref.ModID = last
		ref.EntityID = last
	case CategoryVersions, CategoryVariants:
		if len(parts) != 4 {
			return KeyRef{}, false
		}
		ref.ModID = parts[2]
		ref.EntityID = last
	default:
		return KeyRef{}, false
	}
	return ref, true
}
