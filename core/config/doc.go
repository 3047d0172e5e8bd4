// Package config provides configuration management for the mod registry.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, environment)
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//   - KV: Redis connection details
//   - Identity: static bearer-token table
//   - Mods: upload limits and replication policy
//   - Blobs: grace period and scan cache
//   - Jobs: maintenance schedules
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
