// Package mods implements mod lifecycle management: upload, versioning,
// review transitions, comments, visibility and discovery.
//
// The authoritative copy of every mod lives in its owner's private
// partition; the public partition holds mirrors maintained by the
// replicate subpackage whenever a status or visibility change moves a mod
// across the publication boundary. Lookups go through dedicated indexes
// (owner-of, by-customer, by-visibility, by-slug, and the adjacency lists
// for versions and variants), never through partition scans.
//
// Slugs are unique within the currently-public set only: entering that set
// disambiguates a colliding slug with a numbered suffix, while an explicit
// rename onto a taken slug is rejected as a conflict.
package mods
