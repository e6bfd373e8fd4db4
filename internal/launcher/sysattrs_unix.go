//go:build !windows

package launcher

import "syscall"

// detachedSysProcAttr places the child in its own session so the
// orchestrator's exit never takes running agents down with it.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
