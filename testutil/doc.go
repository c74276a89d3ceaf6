// Package testutil provides deterministic fixtures for tests: a seeded RNG,
// random packed codes, and synthetic images encoded in several formats.
//
// The RNG is safe for concurrent use so parallel subtests can share one
// instance without changing the generated sequence per call site.
package testutil
