//go:build windows

package launcher

import "syscall"

const createNewProcessGroup = 0x00000200

// detachedSysProcAttr detaches the child from the orchestrator's console
// so closing the orchestrator does not terminate running agents.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}
