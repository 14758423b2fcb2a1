// Package core holds the shared domain types for datatables.
//
// The Golden Rule: pkg/core imports only the standard library. Everything
// else (hosts, stores, renderers) depends on core, never the reverse.
package core
