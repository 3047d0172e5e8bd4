package models

import (
	"time"

	"mod-registry/core/apperr"
)

// Status is the review state of a mod.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPending          Status = "pending"
	StatusApproved         Status = "approved"
	StatusChangesRequested Status = "changes_requested"
	StatusDenied           Status = "denied"
	StatusPublished        Status = "published"
	StatusArchived         Status = "archived"
)

// transitions is the allowed edge set of the review state machine.
var transitions = map[Status][]Status{
	StatusDraft:            {StatusPending},
	StatusPending:          {StatusApproved, StatusChangesRequested, StatusDenied},
	StatusChangesRequested: {StatusPending},
	StatusDenied:           {StatusPending},
	StatusApproved:         {StatusPublished},
	StatusPublished:        {StatusArchived},
	StatusArchived:         {StatusPublished},
}

// adminOnly marks the transitions reserved for reviewers.
var adminOnly = map[Status]map[Status]bool{
	StatusPending: {
		StatusApproved:         true,
		StatusChangesRequested: true,
		StatusDenied:           true,
	},
}

// ParseStatus validates a wire status value.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	switch status {
	case StatusDraft, StatusPending, StatusApproved, StatusChangesRequested,
		StatusDenied, StatusPublished, StatusArchived:
		return status, nil
	default:
		return "", apperr.New(apperr.KindInvalidInput, "unknown status %q", s)
	}
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequiresAdmin reports whether the s -> next transition is a review
// decision only admins may take.
func (s Status) RequiresAdmin(next Status) bool {
	return adminOnly[s][next]
}

// IsLive reports whether the status qualifies the mod for the public
// partition (together with public visibility).
func (s Status) IsLive() bool {
	return s == StatusApproved || s == StatusPublished
}

// Visibility is the owner-settable exposure of a mod, orthogonal to status.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility validates a wire visibility value.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if v != VisibilityPublic && v != VisibilityPrivate {
		return "", apperr.New(apperr.KindInvalidInput, "unknown visibility %q", s)
	}
	return v, nil
}

// StatusHistoryEntry records one review transition. Append-only, immutable
// once written. ActorName is a display-name snapshot, never a raw contact
// identifier.
type StatusHistoryEntry struct {
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// ReviewComment is an append-only reviewer or owner note on a mod.
type ReviewComment struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Content   string    `json:"content"`
	At        time.Time `json:"at"`
}

// Mod is the root entity. The authoritative copy lives in the owner's
// private partition; a copy in the public partition is a mirror maintained
// by the replication engine, never a second owner.
type Mod struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Slug       string     `json:"slug"`
	Status     Status     `json:"status"`
	Visibility Visibility `json:"visibility"`
	Title      string     `json:"title"`
	Category   string     `json:"category,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	// ThumbnailExt records the uploaded thumbnail's extension when known.
	// Older records predate the field, so consumers must not rely on it.
	ThumbnailExt string    `json:"thumbnail_ext,omitempty"`
	Downloads    int64     `json:"downloads"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	StatusHistory  []StatusHistoryEntry `json:"status_history,omitempty"`
	ReviewComments []ReviewComment      `json:"review_comments,omitempty"`
}

// ShouldBePublic evaluates the publication invariant for the mod's current
// state: it belongs in the public partition iff visibility is public and
// the status is live.
func (m *Mod) ShouldBePublic() bool {
	return m.Visibility == VisibilityPublic && m.Status.IsLive()
}

// PublicView returns the copy of the mod fit for the public partition.
// Review internals (status history, comments) never leave the private
// partition.
func (m *Mod) PublicView() *Mod {
	view := *m
	view.StatusHistory = nil
	view.ReviewComments = nil
	return &view
}

// Version is a released file of a mod. Child of exactly one mod; deleted
// when the parent is deleted.
type Version struct {
	ID          string    `json:"id"`
	ParentModID string    `json:"parent_mod_id"`
	BlobKey     string    `json:"blob_key"`
	FileSize    int64     `json:"file_size"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// Variant is an alternate build of a mod, attached to a version through
// CurrentVersionID. That pointer must always reference an existing version;
// RepairVariants re-points dangling ones.
type Variant struct {
	ID               string    `json:"id"`
	ParentModID      string    `json:"parent_mod_id"`
	CurrentVersionID string    `json:"current_version_id"`
	BlobKey          string    `json:"blob_key"`
	FileSize         int64     `json:"file_size"`
	Checksum         string    `json:"checksum"`
	CreatedAt        time.Time `json:"created_at"`
}

// Index names. by-slug is single-valued and enforces public slug
// uniqueness; the rest are set-valued.
const (
	IndexByVisibility = "by-visibility"
	IndexBySlug       = "by-slug"
	IndexByCustomer   = "by-customer"
	IndexOwnerOf      = "owner-of"
	IndexVersionsFor  = "versions-for"
	IndexVariantsFor  = "variants-for"
)
