//go:build windows

package supervisor

import (
	"log/slog"
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

func cleanupPort(int, *slog.Logger) {}

// setSysProcAttr keeps the interpreter from opening a console window.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNoWindow}
}
