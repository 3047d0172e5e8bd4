package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mod-registry/core/apperr"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusPending, true},
		{StatusDraft, StatusApproved, false},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusChangesRequested, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusPublished, false},
		{StatusChangesRequested, StatusPending, true},
		{StatusDenied, StatusPending, true},
		{StatusDenied, StatusApproved, false},
		{StatusApproved, StatusPublished, true},
		{StatusApproved, StatusDraft, false},
		{StatusPublished, StatusArchived, true},
		{StatusArchived, StatusPublished, true},
		{StatusArchived, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestReviewDecisionsRequireAdmin(t *testing.T) {
	assert.True(t, StatusPending.RequiresAdmin(StatusApproved))
	assert.True(t, StatusPending.RequiresAdmin(StatusChangesRequested))
	assert.True(t, StatusPending.RequiresAdmin(StatusDenied))

	assert.False(t, StatusDraft.RequiresAdmin(StatusPending))
	assert.False(t, StatusApproved.RequiresAdmin(StatusPublished))
	assert.False(t, StatusPublished.RequiresAdmin(StatusArchived))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("changes_requested")
	assert.NoError(t, err)
	assert.Equal(t, StatusChangesRequested, s)

	_, err = ParseStatus("live")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestShouldBePublic(t *testing.T) {
	mod := Mod{Visibility: VisibilityPublic, Status: StatusApproved}
	assert.True(t, mod.ShouldBePublic())

	mod.Status = StatusPublished
	assert.True(t, mod.ShouldBePublic())

	mod.Status = StatusPending
	assert.False(t, mod.ShouldBePublic())

	mod.Status = StatusArchived
	assert.False(t, mod.ShouldBePublic())

	mod = Mod{Visibility: VisibilityPrivate, Status: StatusPublished}
	assert.False(t, mod.ShouldBePublic())
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("public")
	assert.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	_, err = ParseVisibility("hidden")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}
