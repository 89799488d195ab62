// Package datafiles implements the datafile catalogue (C2): on startup it
// walks a directory tree for "*.json" files, parses each as a generic JSON
// tree, and keeps the result keyed by its path relative to the configured
// root. Datafiles are treated as opaque outside of the one sub-path this
// service cares about (features.*.variations[*].weight); everything else
// is passthrough, represented with encoding/json's generic map/slice
// decoding rather than a typed struct, so schema fields this service
// doesn't know about still round-trip untouched.
package datafiles
