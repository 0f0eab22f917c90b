package process

import (
	stderrors "errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
)

// ExecutionConfig describes one launch. Environment entries are KEY=VALUE
// pairs added to the caller's environment.
type ExecutionConfig struct {
	ExecutablePath   string
	Args             []string
	Environment      []string
	WorkingDirectory string
}

// Argv is the full argument vector, program first.
func (c ExecutionConfig) Argv() []string {
	return append([]string{c.ExecutablePath}, c.Args...)
}

// Spawner launches a process that outlives the caller.
type Spawner interface {
	SpawnDetached(execution ExecutionConfig) (int, error)
}

// Runner runs a process to completion.
type Runner interface {
	Run(execution ExecutionConfig) Outcome
}

// Outcome is how a synchronously run process ended. Exactly one of
// LaunchErr, Signaled or Exited describes it.
type Outcome struct {
	LaunchErr  error
	Exited     bool
	ExitCode   int
	Signaled   bool
	Signal     int
	CoreDumped bool
	// NoChild is set when the child was reaped before Wait could see it.
	NoChild bool
}

// Success reports a clean zero exit, counting an already-reaped child as one.
func (o Outcome) Success() bool {
	return o.NoChild || (o.LaunchErr == nil && o.Exited && o.ExitCode == 0)
}

type StdSpawner struct {
	logger logging.Logger
}

func NewStdSpawner(logger logging.Logger) *StdSpawner {
	return &StdSpawner{logger: logger}
}

// SpawnDetached starts the process in its own session with stdio on the
// null device. The child is reaped in the background, so the caller never
// blocks on the daemon's lifetime.
func (s *StdSpawner) SpawnDetached(execution ExecutionConfig) (int, error) {
	if err := ValidateExecutionConfig(execution); err != nil {
		return 0, err
	}

	cmd := newCommand(execution)
	setupDetachedAttributes(cmd)

	s.logger.Debugf("Spawning detached process, argv: %q, working directory: '%s'", execution.Argv(), cmd.Dir)

	if err := cmd.Start(); err != nil {
		return 0, errors.NewLaunchError("failed to start "+execution.ExecutablePath, err).WithContext("executable_path", execution.ExecutablePath)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		s.logger.Debugf("Detached process exited, PID: %d, result: %v", pid, err)
	}()

	s.logger.Infof("Spawned detached process, PID: %d, executable: %s", pid, execution.ExecutablePath)
	return pid, nil
}

type StdRunner struct {
	logger logging.Logger
}

func NewStdRunner(logger logging.Logger) *StdRunner {
	return &StdRunner{logger: logger}
}

// Run executes the process with the caller's stdio and waits for it.
func (r *StdRunner) Run(execution ExecutionConfig) Outcome {
	if err := ValidateExecutionConfig(execution); err != nil {
		return Outcome{LaunchErr: err}
	}

	cmd := newCommand(execution)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	r.logger.Debugf("Running process, argv: %q", execution.Argv())

	err := cmd.Run()
	outcome := classify(cmd, err)

	r.logger.Debugf("Process finished, executable: %s, outcome: %+v", execution.ExecutablePath, outcome)
	return outcome
}

func newCommand(execution ExecutionConfig) *exec.Cmd {
	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = execution.WorkingDirectory
	if len(execution.Environment) > 0 {
		cmd.Env = append(os.Environ(), execution.Environment...)
	}
	return cmd
}

func classify(cmd *exec.Cmd, err error) Outcome {
	if err == nil {
		return outcomeFromState(cmd.ProcessState)
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return outcomeFromState(exitErr.ProcessState)
	}

	if stderrors.Is(err, syscall.ECHILD) {
		return Outcome{NoChild: true}
	}

	return Outcome{LaunchErr: err}
}

func outcomeFromState(state *os.ProcessState) Outcome {
	if state == nil {
		return Outcome{NoChild: true}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Outcome{
			Signaled:   true,
			Signal:     int(ws.Signal()),
			CoreDumped: ws.CoreDump(),
		}
	}
	return Outcome{Exited: true, ExitCode: state.ExitCode()}
}
