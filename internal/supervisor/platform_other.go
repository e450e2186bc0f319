//go:build !unix && !windows

package supervisor

import (
	"log/slog"
	"os/exec"
)

func cleanupPort(int, *slog.Logger) {}

func setSysProcAttr(*exec.Cmd) {}
