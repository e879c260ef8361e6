// setaffinity_linux.go - Linux CPU affinity via sched_setaffinity(2)

//go:build linux && !tinygo

package pipeline

import (
	"golang.org/x/sys/unix"

	"wheelsieve/debug"
)

// setAffinity pins the calling OS thread to one logical CPU.
// Indices past the online CPU count wrap around; failures are logged and ignored.
func setAffinity(cpu int) {
	if cpu < 0 {
		return
	}
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil && set.Count() > 0 {
		cpu %= set.Count()
	}
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		debug.DropError("pipeline: setaffinity", err)
	}
}
