// Package overlay implements the weight overlay (C3): given a parsed
// datafile and a way to look up a variant's stored weight, it produces a
// datafile whose variant weights reflect the current optimization state
// while preserving variant order, identity, and every other field.
//
// Overlay is a pure function. It never mutates the Tree it's given, so the
// datafile repository's cache stays read-only regardless of how many
// concurrent overlays are computed from it.
package overlay
