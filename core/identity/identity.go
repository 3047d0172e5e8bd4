package identity

import (
	"context"

	"mod-registry/core/apperr"
)

// Principal is a resolved caller.
type Principal struct {
	// TenantID is the caller's tenant; their private partition key.
	TenantID string
	// DisplayName is a snapshot-safe name for attribution fields.
	// Never a raw contact identifier.
	DisplayName string
	// Admin marks callers allowed to perform review transitions and
	// blob administration.
	Admin bool
}

// Resolver resolves bearer credentials and tenant ids. Implementations are
// external collaborators; this package ships only a static config-backed one.
type Resolver interface {
	// ResolveToken maps a bearer credential to a principal.
	ResolveToken(ctx context.Context, token string) (*Principal, error)
	// DisplayName returns a display name for a tenant id, for audit and
	// attribution fields.
	DisplayName(ctx context.Context, tenantID string) (string, error)
}

// AttributionName resolves a display name, degrading to empty when the
// resolver is unavailable. Attribution must never fail a whole request.
func AttributionName(ctx context.Context, r Resolver, tenantID string) string {
	name, err := r.DisplayName(ctx, tenantID)
	if err != nil {
		return ""
	}
	return name
}

// Static is a config-backed resolver for deployments without an external
// identity service, and for tests.
type Static struct {
	tokens map[string]Principal
	names  map[string]string
}

// NewStatic builds a resolver from the configured token table.
func NewStatic(cfg Config) *Static {
	return NewStaticFromTokens(cfg.ParseTokens())
}

// NewStaticFromTokens builds a resolver from explicit token mappings.
func NewStaticFromTokens(table []Token) *Static {
	tokens := make(map[string]Principal, len(table))
	names := make(map[string]string, len(table))
	for _, t := range table {
		tokens[t.Token] = Principal{TenantID: t.TenantID, DisplayName: t.DisplayName, Admin: t.Admin}
		names[t.TenantID] = t.DisplayName
	}
	return &Static{tokens: tokens, names: names}
}

func (s *Static) ResolveToken(ctx context.Context, token string) (*Principal, error) {
	p, ok := s.tokens[token]
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "unknown credential")
	}
	return &p, nil
}

func (s *Static) DisplayName(ctx context.Context, tenantID string) (string, error) {
	name, ok := s.names[tenantID]
	if !ok {
		return "", apperr.New(apperr.KindNotFound, "unknown tenant %s", tenantID)
	}
	return name, nil
}
