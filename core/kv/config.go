package kv

// Config holds configuration for the key-value backend.
type Config struct {
	// Addr is the redis host:port.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the redis password, empty for none.
	Password string `mapstructure:"password" default:""`
	// DB is the redis logical database number.
	DB int `mapstructure:"db" default:"0"`
	// TimeoutSeconds is the per-operation timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"10"`
}
