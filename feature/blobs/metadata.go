package blobs

import (
	"strings"
	"time"

	"mod-registry/core/utils"
)

// User metadata keys carrying the soft-delete marker. S3-compatible
// backends return these with an X-Amz-Meta- prefix and arbitrary casing,
// so lookups normalize both sides.
const (
	metaMarked   = "marked-for-deletion"
	metaMarkedOn = "marked-for-deletion-on"
)

func normalizeMetaKey(key string) string {
	key = strings.ToLower(key)
	key = strings.TrimPrefix(key, "x-amz-meta-")
	return strings.ReplaceAll(key, "_", "-")
}

// metaValue looks up a user metadata entry by normalized name.
func metaValue(meta map[string]string, name string) (string, bool) {
	for k, v := range meta {
		if normalizeMetaKey(k) == name {
			return v, true
		}
	}
	return "", false
}

// markedForDeletion reports whether the metadata carries the marker, and
// when it was set. A marker without a parseable timestamp counts as marked
// with a zero time.
func markedForDeletion(meta map[string]string) (bool, time.Time) {
	raw, ok := metaValue(meta, metaMarked)
	if !ok || !utils.ToBool(raw) {
		return false, time.Time{}
	}
	on, _ := metaValue(meta, metaMarkedOn)
	return true, utils.ToTime(on)
}
