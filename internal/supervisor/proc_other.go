//go:build windows

package supervisor

import "os/exec"

func configureProcAttr(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
