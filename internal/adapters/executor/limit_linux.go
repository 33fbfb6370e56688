//go:build linux

package executor

import "golang.org/x/sys/unix"

// applyFileSizeLimit sets RLIMIT_FSIZE on a running child. The kernel then stops any write
// past the limit with SIGXFSZ. The size watchdog covers the short window before this applies.
func applyFileSizeLimit(pid int, limit int64) error {
	rlimit := unix.Rlimit{Cur: uint64(limit), Max: uint64(limit)}
	return unix.Prlimit(pid, unix.RLIMIT_FSIZE, &rlimit, nil)
}
