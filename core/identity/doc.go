// Package identity defines the identity-resolution collaborator interface.
//
// The service never stores raw contact identifiers; every attribution field
// (status history, review comments) carries a display-name snapshot obtained
// through the Resolver. When the resolver is unavailable, attribution-only
// lookups degrade to an empty display name instead of failing the request
// (see AttributionName).
//
// The Static implementation reads a token table from configuration and is
// suitable for development and tests; production deployments provide their
// own Resolver.
package identity
