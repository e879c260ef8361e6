// relax_stub.go - no-op cpuRelax for targets without a spin hint, and for
// builds with cgo or assembly disabled. The consumer still falls back to
// runtime.Gosched after its spin budget.

//go:build (!amd64 && !arm64) || !cgo || noasm

package pipeline

//go:nosplit
//go:inline
func cpuRelax() {}
