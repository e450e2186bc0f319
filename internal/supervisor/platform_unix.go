//go:build unix

package supervisor

import (
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// cleanupPort kills whatever still listens on port, typically a service left
// behind by a previous crash. Best effort: a missing lsof is ignored.
func cleanupPort(port int, logger *slog.Logger) {
	out, err := exec.Command("lsof", "-i", ":"+strconv.Itoa(port), "-t").Output()
	if err != nil {
		return
	}
	self := os.Getpid()
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid == self {
			continue
		}
		logger.Info("killing stale process on tts port", "port", port, "pid", pid)
		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			logger.Warn("failed to kill stale process", "pid", pid, "error", err)
		}
	}
}

func setSysProcAttr(*exec.Cmd) {}
