package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// Environment selects the runtime environment (development, production).
	// Outside development, internal error detail is suppressed from responses.
	Environment string `mapstructure:"environment" default:"production"`
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// IsValidEnvironment checks if the configured environment is valid.
func (c Config) IsValidEnvironment() bool {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
		return true
	default:
		return false
	}
}

// IsDevelopment reports whether error detail may be exposed to callers.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
