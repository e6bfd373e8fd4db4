//go:build windows

package launcher

import "os"

// Terminate kills the agent process. Windows has no SIGTERM delivery for
// detached children, so this is a hard kill.
func Terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
