package identity

import "strings"

// Token maps a bearer credential to a tenant.
type Token struct {
	Token       string
	TenantID    string
	DisplayName string
	Admin       bool
}

// Config holds the static resolver's token table.
type Config struct {
	// Tokens is the compact credential table, environment-friendly:
	// semicolon-separated token:tenant_id:display_name:admin entries.
	// A real deployment swaps the static resolver for an identity-service
	// client instead.
	Tokens string `mapstructure:"tokens" default:""`
}

// ParseTokens expands the compact table. Malformed entries are skipped.
func (c Config) ParseTokens() []Token {
	entries := strings.Split(c.Tokens, ";")
	tokens := make([]Token, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		t := Token{Token: parts[0], TenantID: parts[1]}
		if len(parts) > 2 {
			t.DisplayName = parts[2]
		}
		if len(parts) > 3 {
			t.Admin = parts[3] == "true" || parts[3] == "1"
		}
		tokens = append(tokens, t)
	}
	return tokens
}
