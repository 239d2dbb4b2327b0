//go:build !unix

package controller

import (
	"errors"
	"os"
	"os/exec"
)

func configureProcess(cmd *exec.Cmd, onKill func()) {
	cmd.Cancel = func() error {
		onKill()
		return cmd.Process.Kill()
	}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
