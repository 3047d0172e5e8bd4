package blobs

// Config holds the blob lifecycle settings.
type Config struct {
	// GraceDays is how long a marked blob survives before a sweep may
	// delete it.
	GraceDays int `mapstructure:"grace_days" default:"5"`
	// ScanCacheSeconds is the TTL for cached scan indices. Zero disables
	// caching and every scan rebuilds both indices.
	ScanCacheSeconds int `mapstructure:"scan_cache_seconds" default:"300"`
	// ListPageSize is the page size for blob listings.
	ListPageSize int `mapstructure:"list_page_size" default:"100"`
}
