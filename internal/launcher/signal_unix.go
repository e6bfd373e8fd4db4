//go:build !windows

package launcher

import "syscall"

// Terminate sends SIGTERM to the agent's process group. It returns an
// error when signal delivery fails (e.g. the process is already gone).
func Terminate(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}
