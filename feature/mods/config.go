package mods

import "strings"

// Config holds the mods feature settings.
type Config struct {
	// MaxUploadBytes caps version, variant and thumbnail uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" default:"104857600"`
	// AllowedExtensions is the comma-separated allow-list for version and
	// variant files.
	AllowedExtensions string `mapstructure:"allowed_extensions" default:"zip,7z,rar,pak"`
	// RetractChildren selects the engine policy for public child copies
	// when a mod is unpublished.
	RetractChildren bool `mapstructure:"retract_children" default:"true"`
}

// allowedExtensionSet parses the allow-list into a lookup set.
func (c Config) allowedExtensionSet() map[string]bool {
	set := make(map[string]bool)
	for _, ext := range strings.Split(c.AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			set[ext] = true
		}
	}
	return set
}
