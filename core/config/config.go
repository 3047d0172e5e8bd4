package config

import (
	"reflect"
	"strings"

	"mod-registry/core/identity"
	"mod-registry/core/jobs"
	"mod-registry/core/kv"
	"mod-registry/core/logger"
	"mod-registry/core/server"
	"mod-registry/core/storage"
	"mod-registry/feature/blobs"
	"mod-registry/feature/mods"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// KV holds configuration for the key-value backend.
	KV kv.Config `mapstructure:"kv"`
	// Identity holds the token table for the static identity resolver.
	Identity identity.Config `mapstructure:"identity"`
	// Mods holds the mod lifecycle settings.
	Mods mods.Config `mapstructure:"mods"`
	// Blobs holds the blob lifecycle settings.
	Blobs blobs.Config `mapstructure:"blobs"`
	// Jobs holds the scheduled maintenance settings.
	Jobs jobs.Config `mapstructure:"jobs"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Slice and map fields (the identity token table) carry no scalar
		// default; an empty-string default would break their Unmarshal.
		if field.Type.Kind() == reflect.Slice || field.Type.Kind() == reflect.Map {
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
