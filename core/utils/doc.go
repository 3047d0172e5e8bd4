// Package utils provides common utility functions for the mod-registry service.
// It includes helper functions for type conversion of loosely-typed values
// (blob user metadata, config values) and other shared logic that doesn't fit
// into domain-specific packages.
package utils
