// Package httpapi implements the event ingest surface (C6) and query
// surface (C7): a plain net/http.ServeMux server exposing /expose,
// /convert, /datafile/<path>, /stats and /recalculate, in the same
// single-mux, method-pattern-routed shape this codebase's own HTTP
// transport uses for its RPC endpoint.
package httpapi
