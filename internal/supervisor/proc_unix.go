//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcAttr puts the worker in its own process group and makes
// context cancellation SIGKILL the whole group.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		// Negative PID addresses the process group.
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
