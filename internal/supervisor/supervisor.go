// Package supervisor keeps the external speech-synthesis service running.
//
// The service is an interpreter invocation of a fixed script. The supervisor
// spawns it with its output piped into the log, checks it on a fixed
// interval and respawns it when it has exited, as long as the feature is
// still enabled in the live configuration.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/murmur/internal/events"
)

// ErrScriptNotFound is returned when neither the configured script nor any
// fallback location exists.
var ErrScriptNotFound = errors.New("tts server script not found")

// Status values carried by tts-service-status events.
const (
	StatusRestarting = "restarting"
	StatusRunning    = "running"
)

// DefaultFallbacks are checked, in order, when the script is not found under
// the resource directory. Relative paths resolve against the working
// directory, which covers running from a source checkout.
var DefaultFallbacks = []string{
	"tts/server.py",
	"../tts/server.py",
	"../../tts/server.py",
}

// outputGrace bounds how long output is still forwarded after the service
// exited.
const outputGrace = 2 * time.Second

// interpreterRoots are searched for a tts_env virtualenv.
var interpreterRoots = []string{".", "src-tauri", "..", "../src-tauri", "../..", "../../.."}

// Emitter broadcasts named events.
type Emitter interface {
	Emit(name string, payload any)
}

// Config describes the supervised process.
type Config struct {
	Interpreter    string   // empty: tts_env lookup, then the system python
	Script         string   // relative to ResourceDir unless absolute
	ResourceDir    string
	Fallbacks      []string // nil: DefaultFallbacks
	Port           int      // freed before spawning on unix; 0 skips cleanup
	HealthInterval time.Duration
	Enabled        func() bool // consulted before every health-check restart
}

// Supervisor owns at most one running service process.
type Supervisor struct {
	cfg     Config
	emitter Emitter
	logger  *slog.Logger

	mu   sync.Mutex // guards proc; serializes spawn and restart
	proc *process   // nil exactly when no process is known to be running

	startMu  sync.Mutex // serializes port cleanup with the Start spawn
	freePort func(port int)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{} // closed after the process has been reaped
	err  error         // Wait result, valid after done is closed
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// New creates a supervisor and starts its health-check loop. The loop runs
// until Close.
func New(cfg Config, emitter Emitter) *Supervisor {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = 10 * time.Second
	}
	if cfg.Fallbacks == nil {
		cfg.Fallbacks = DefaultFallbacks
	}
	if cfg.Enabled == nil {
		cfg.Enabled = func() bool { return true }
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:     cfg,
		emitter: emitter,
		logger:  slog.With("component", "supervisor"),
		cancel:  cancel,
	}
	s.freePort = func(port int) { cleanupPort(port, s.logger) }

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.healthLoop(ctx)
	}()
	return s
}

// Start spawns the service in the background unless a process is already
// held. It returns immediately; spawn failures are only logged. Before the
// first spawn of a Start, whatever still listens on the service port is
// killed.
func (s *Supervisor) Start() {
	if s.held() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.startMu.Lock()
		defer s.startMu.Unlock()
		if s.held() {
			return
		}
		if s.cfg.Port > 0 {
			s.freePort(s.cfg.Port)
		}
		if err := s.ensureRunning(false); err != nil {
			s.logger.Error("failed to start tts service", "error", err)
		}
	}()
}

func (s *Supervisor) held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Stop kills the service process, if any.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	s.mu.Unlock()

	if p == nil {
		return
	}
	s.logger.Info("shutting down tts service", "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("failed to kill tts service", "pid", p.cmd.Process.Pid, "error", err)
	}
}

// IsRunning checks the held process and forgets it if it has exited.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		return false
	}
	if s.proc.exited() {
		s.logger.Warn("tts service is no longer running", "error", s.proc.err)
		s.proc = nil
		return false
	}
	return true
}

// Close stops the health-check loop and kills the service.
func (s *Supervisor) Close() {
	s.cancel()
	s.wg.Wait()
	s.Stop()
}

func (s *Supervisor) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check()
		}
	}
}

// check is one health-check pass.
func (s *Supervisor) check() {
	if err := s.ensureRunning(true); err != nil {
		s.logger.Error("failed to restart tts service", "error", err)
	}
}

// ensureRunning spawns the service if no live process is held. With announce
// set it honours the enabled flag and reports progress as status events.
func (s *Supervisor) ensureRunning(announce bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		if !s.proc.exited() {
			return nil
		}
		s.logger.Error("tts service exited", "pid", s.proc.cmd.Process.Pid, "error", s.proc.err)
		s.proc = nil
	}

	if announce {
		if !s.cfg.Enabled() {
			return nil
		}
		s.emitter.Emit(events.TTSServiceStatus, StatusRestarting)
	}

	err := s.spawnLocked()
	if announce {
		if err != nil {
			s.emitter.Emit(events.TTSServiceError, fmt.Sprintf("failed to restart: %v", err))
		} else {
			s.emitter.Emit(events.TTSServiceStatus, StatusRunning)
		}
	}
	return err
}

func (s *Supervisor) spawnLocked() error {
	script, err := s.resolveScript()
	if err != nil {
		return err
	}
	interp := s.interpreter()

	cmd := exec.Command(interp, script)
	setSysProcAttr(cmd)

	// Plain pipes keep exit detection independent of output: a child of the
	// service may hold the write ends open long after the service exited.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	startErr := cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		stdoutR.Close()
		stderrR.Close()
		return fmt.Errorf("spawn %s: %w", interp, startErr)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	logger := s.logger.With("pid", cmd.Process.Pid)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go pump(&pumps, stdoutR, logger.With("stream", "stdout"), slog.LevelInfo)
	go pump(&pumps, stderrR, logger.With("stream", "stderr"), slog.LevelError)
	go func() {
		p.err = cmd.Wait()
		close(p.done)

		drained := make(chan struct{})
		go func() {
			pumps.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(outputGrace):
			logger.Debug("tts service output still open after exit, closing")
		}
		stdoutR.Close()
		stderrR.Close()
	}()

	s.proc = p
	logger.Info("tts service started", "interpreter", interp, "script", script)
	return nil
}

// pump forwards r to the log line by line until EOF.
func pump(wg *sync.WaitGroup, r io.Reader, logger *slog.Logger, level slog.Level) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		logger.Log(context.Background(), level, "tts service output", "line", sc.Text())
	}
	if err := sc.Err(); err != nil {
		logger.Debug("log pump stopped", "error", err)
		_, _ = io.Copy(io.Discard, r)
	}
}

// resolveScript returns the first existing script location.
func (s *Supervisor) resolveScript() (string, error) {
	candidates := make([]string, 0, len(s.cfg.Fallbacks)+1)
	if s.cfg.Script != "" {
		primary := s.cfg.Script
		if !filepath.IsAbs(primary) {
			primary = filepath.Join(s.cfg.ResourceDir, primary)
		}
		candidates = append(candidates, primary)
	}
	candidates = append(candidates, s.cfg.Fallbacks...)

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				return c, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrScriptNotFound, strings.Join(candidates, ", "))
}

func (s *Supervisor) interpreter() string {
	if s.cfg.Interpreter != "" {
		return s.cfg.Interpreter
	}
	return findInterpreter(interpreterRoots)
}

// findInterpreter returns the tts_env python under the first root that has
// one, else the system python.
func findInterpreter(roots []string) string {
	bin := filepath.Join("bin", "python")
	if runtime.GOOS == "windows" {
		bin = filepath.Join("Scripts", "python.exe")
	}
	for _, root := range roots {
		p := filepath.Join(root, "tts_env", bin)
		if _, err := os.Stat(p); err == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// Diagnostics describes the interpreter and script the supervisor would use.
type Diagnostics struct {
	PythonPath           string `json:"python_path"`
	PythonExists         bool   `json:"python_exists"`
	PythonVersion        string `json:"python_version,omitempty"`
	ServerScriptResolved bool   `json:"server_script_resolved"`
	ServerScriptPath     string `json:"server_script_path,omitempty"`
	Running              bool   `json:"running"`
}

// Diagnostics inspects the environment without touching the running process.
func (s *Supervisor) Diagnostics(ctx context.Context) Diagnostics {
	d := Diagnostics{PythonPath: s.interpreter()}

	if path, err := exec.LookPath(d.PythonPath); err == nil {
		d.PythonExists = true
		vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		// Older interpreters print the version on stderr.
		if out, err := exec.CommandContext(vctx, path, "--version").CombinedOutput(); err == nil {
			d.PythonVersion = strings.TrimSpace(string(out))
		}
	}

	if script, err := s.resolveScript(); err == nil {
		d.ServerScriptResolved = true
		d.ServerScriptPath = script
	}
	d.Running = s.IsRunning()
	return d
}
