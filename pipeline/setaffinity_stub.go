// ============================================================================
// CROSS-PLATFORM COMPATIBILITY STUB
// ============================================================================
//
// setaffinity_stub.go - CPU affinity no-op for systems without
// sched_setaffinity(2): macOS, Windows, BSD variants and TinyGo builds.
// Workers still lock to an OS thread; only the core binding is skipped.

//go:build !linux || tinygo

package pipeline

//go:nosplit
//go:inline
func setAffinity(cpu int) {}
