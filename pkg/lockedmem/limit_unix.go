//go:build linux || darwin

package lockedmem

import "golang.org/x/sys/unix"

// mlockLimit returns RLIMIT_MEMLOCK in bytes, -1 when unlimited.
func mlockLimit() (int64, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rl); err != nil {
		return 0, err
	}
	if rl.Cur == unix.RLIM_INFINITY {
		return -1, nil
	}
	return int64(rl.Cur), nil
}
