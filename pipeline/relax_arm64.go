// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - ARM64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Consumer Spin-Wait Hint
//
// Description:
//   Emits YIELD while the consumer polls worker slots for the next expected block index.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build arm64 && cgo && !noasm

package pipeline

/*
static inline void cpu_yield() {
    __asm__ __volatile__("yield" ::: "memory");
}
*/
import "C"

// cpuRelax emits one ARM64 YIELD.
//
//go:nosplit
func cpuRelax() {
	C.cpu_yield()
}
