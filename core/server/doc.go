// Package server holds the HTTP server configuration and constants.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structures and valid values for server settings,
// such as the runtime environment.
//
// # Configuration
//
// The Config struct defines the HTTP port and the environment (development,
// production). The environment decides whether internal error detail may be
// returned to callers or must be suppressed behind a generic message.
package server
