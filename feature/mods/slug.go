package mods

import (
	"context"
	"fmt"
	"strings"

	"mod-registry/core/apperr"
	"mod-registry/core/entity"
	"mod-registry/feature/mods/models"
)

// slugify turns a title into a URL-safe slug: lowercase, runs of anything
// non-alphanumeric collapsed to single hyphens. Titles that sanitize to
// nothing are rejected before any write happens.
func slugify(title string) (string, error) {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "", apperr.New(apperr.KindInvalidInput, "title %q does not yield a usable slug", title)
	}
	return s, nil
}

// slugAvailable checks base against the current public slug index,
// excluding the mod's own entry.
func (s *Service) slugAvailable(ctx context.Context, slug, selfID string) (bool, error) {
	holder, err := s.indexes.GetSingle(ctx, entity.Public, models.IndexBySlug, slug)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return holder == selfID, nil
}

// disambiguateSlug returns base if free in the public slug index, otherwise
// the first free numbered variant (base-2, base-3, ...).
func (s *Service) disambiguateSlug(ctx context.Context, base, selfID string) (string, error) {
	ok, err := s.slugAvailable(ctx, base, selfID)
	if err != nil {
		return "", err
	}
	if ok {
		return base, nil
	}
	for i := 2; i <= 99; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		ok, err := s.slugAvailable(ctx, candidate, selfID)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", apperr.New(apperr.KindConflict, "no free slug variant for %q", base)
}
