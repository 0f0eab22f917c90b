//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupDetachedAttributes puts the child in a new session so it has no
// controlling terminal and does not share the caller's process group.
func setupDetachedAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
