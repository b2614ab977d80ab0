// Package errors provides predicates over the sentinel errors spread
// across the engine's subpackages, so callers can branch on error
// class without importing each package.
package errors
