// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Consumer Spin-Wait Hint
//
// Description:
//   Emits PAUSE while the consumer polls worker slots for the next expected block index.
//   Lets a sibling hyperthread running a worker make progress during the spin.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && cgo && !noasm

package pipeline

/*
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
*/
import "C"

// cpuRelax emits one x86-64 PAUSE.
//
//go:nosplit
func cpuRelax() {
	C.cpu_pause()
}
