package manager

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/locator"
	"github.com/core-tools/hsu-searchd/pkg/logging"
	"github.com/core-tools/hsu-searchd/pkg/process"
	"github.com/core-tools/hsu-searchd/pkg/processtable"
	"github.com/core-tools/hsu-searchd/pkg/sphinxconf"
	"github.com/core-tools/hsu-searchd/pkg/waiter"
)

// ExecutableLocator resolves binaries by name.
type ExecutableLocator interface {
	Locate(name string) (string, error)
}

// Dependencies are the OS-facing collaborators. Nil fields get the
// standard implementation.
type Dependencies struct {
	Lookup    sphinxconf.Lookup
	Table     processtable.Query
	Spawner   process.Spawner
	Runner    process.Runner
	Signaller process.Signaller
	Locator   ExecutableLocator
	Waiter    *waiter.Waiter
}

// Manager starts, stops, reloads and inspects one search daemon and runs
// its indexer. Operations are synchronous; waits are bounded by the
// process timeout. Two managers racing on the same daemon are not
// coordinated.
type Manager struct {
	config   Config
	deps     Dependencies
	resolver *PidResolver
	logger   logging.Logger

	state LifecycleState
}

func NewManager(config Config, deps Dependencies, logger logging.Logger) (*Manager, error) {
	config = WithDefaults(config)
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	if deps.Lookup == nil {
		deps.Lookup = sphinxconf.NewFileLookup()
	}
	if deps.Table == nil {
		deps.Table = processtable.NewGopsutilQuery()
	}
	if deps.Spawner == nil {
		deps.Spawner = process.NewStdSpawner(logging.Named(logger, "spawn"))
	}
	if deps.Runner == nil {
		deps.Runner = process.NewStdRunner(logging.Named(logger, "run"))
	}
	if deps.Signaller == nil {
		deps.Signaller = process.NewStdSignaller(logging.Named(logger, "signal"))
	}
	if deps.Locator == nil {
		deps.Locator = locator.NewLocator(config.BinDir)
	}
	if deps.Waiter == nil {
		deps.Waiter = waiter.NewWaiter(config.PollInterval)
	}

	m := &Manager{
		config: config,
		deps:   deps,
		logger: logger,
		state:  StateNotRunning,
	}
	m.resolver = NewPidResolver(config.PIDFile, config.SearchdName, deps.Lookup, deps.Table, logging.Named(logger, "pid-resolver"))
	return m, nil
}

// Config returns a copy of the effective configuration.
func (m *Manager) Config() Config {
	return WithDefaults(m.config)
}

// SetConfigFile switches to another daemon config file. The cached
// PID file path is reloaded on next use.
func (m *Manager) SetConfigFile(path string) error {
	if path == "" {
		return errors.NewValidationError("config file cannot be empty", nil)
	}
	m.config.ConfigFile = path
	return nil
}

// LastState is the lifecycle state the last operation ended in.
func (m *Manager) LastState() LifecycleState {
	return m.state
}

// ResolvePIDFilePath returns the authoritative PID file path.
func (m *Manager) ResolvePIDFilePath() (string, error) {
	return m.resolver.ResolvePIDFilePath(m.configPath())
}

// DaemonPIDs returns the PIDs of every running daemon instance.
func (m *Manager) DaemonPIDs() ([]int, error) {
	matches, err := m.resolver.FindDaemonPIDs(m.configPath())
	if err != nil {
		return nil, err
	}
	return pidsOf(matches), nil
}

// Status derives the daemon state from the PID file and process table.
func (m *Manager) Status() (DaemonStatus, error) {
	d, err := m.resolver.discover(m.configPath())
	if err != nil {
		return DaemonStatus{}, err
	}
	status := DaemonStatus{PIDs: pidsOf(d.matches), PIDFile: d.pidFile, FilePID: d.filePID}
	switch {
	case len(d.matches) > 0:
		status.State = DaemonRunning
	case d.filePID != 0:
		status.State = DaemonIndeterminate
	default:
		status.State = DaemonNotRunning
	}
	return status, nil
}

// Start launches the daemon detached and waits until it shows up in the
// process table.
func (m *Manager) Start() error {
	configFile := m.configPath()

	pids, err := m.DaemonPIDs()
	if err != nil {
		return err
	}
	if len(pids) > 0 {
		return errors.NewAlreadyRunningError(fmt.Sprintf("%s is already running, pids: %v", m.config.SearchdName, pids), nil).
			WithContext("pids", pids).
			WithContext("config_file", configFile)
	}

	path, err := m.deps.Locator.Locate(m.config.SearchdName)
	if err != nil {
		return err
	}

	args := append([]string{"--config", configFile}, m.config.SearchdArgs...)
	execution := m.launchConfig(m.config.SearchdSudo, path, args)

	m.transition(StateStarting)
	if _, err := m.deps.Spawner.SpawnDetached(execution); err != nil {
		m.transition(StateFailed)
		if errors.IsLaunchError(err) {
			return err
		}
		return errors.NewLaunchError("failed to spawn "+path, err).WithContext("argv", execution.Argv())
	}

	pattern := processtable.DaemonPattern(m.config.SearchdName, configFile)
	appeared := m.deps.Waiter.WaitUntil(m.config.Timeout(), func() bool {
		matches, err := processtable.FindMatching(m.deps.Table, pattern)
		if err != nil {
			m.logger.Warnf("Process table query failed while waiting for start: %v", err)
			return false
		}
		return len(matches) > 0
	})
	if !appeared {
		m.transition(StateFailed)
		return errors.NewStartTimeoutError(
			fmt.Sprintf("no process matching %q appeared within %ds", pattern.String(), m.config.TimeoutSeconds()), nil,
		).WithContext("pattern", pattern.String()).WithContext("argv", execution.Argv())
	}

	m.transition(StateRunning)
	return nil
}

// Stop sends the graceful signal to every daemon instance, escalates to
// the forced signal if any outlive the timeout, and fails if any outlive
// that too. Stopping a daemon that is not running succeeds.
func (m *Manager) Stop() error {
	pids, err := m.DaemonPIDs()
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		m.logger.Infof("%s is not running, nothing to stop", m.config.SearchdName)
		m.state = StateNotRunning
		return nil
	}

	m.transition(StateStopping)

	signalErrs := m.signalAll(pids, process.SignalTerminate)
	if m.waitGone(pids) {
		m.transition(StateNotRunning)
		return nil
	}

	m.logger.Warnf("%s did not exit after %s within %ds, escalating, pids: %v",
		m.config.SearchdName, process.SignalTerminate, m.config.TimeoutSeconds(), m.alive(pids))
	for _, err := range m.signalAll(pids, process.SignalKill).Errors {
		signalErrs.Add(err)
	}
	if m.waitGone(pids) {
		m.transition(StateNotRunning)
		return nil
	}

	survivors := m.alive(pids)
	m.transition(StateFailed)
	return errors.NewStopFailedError(
		fmt.Sprintf("%s still running after %s and %s, pids: %v", m.config.SearchdName, process.SignalTerminate, process.SignalKill, survivors),
		signalErrs.ToError(),
	).WithContext("pids", survivors)
}

// Restart is Stop followed by Start. Nothing prevents another actor from
// starting a daemon between the two.
func (m *Manager) Restart() error {
	if err := m.Stop(); err != nil {
		return err
	}
	return m.Start()
}

// Reload asks running instances to re-read their configuration and does
// not wait for them. With no instance running it starts one.
func (m *Manager) Reload() error {
	pids, err := m.DaemonPIDs()
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		m.logger.Infof("%s is not running, starting it instead of reloading", m.config.SearchdName)
		return m.Start()
	}

	m.logger.Infof("Reloading %s, pids: %v", m.config.SearchdName, pids)
	return m.signalAll(pids, process.SignalReload).ToError()
}

func (m *Manager) transition(next LifecycleState) {
	m.logger.Infof("%s: %s -> %s", m.config.SearchdName, m.state, next)
	m.state = next
}

// configPath is the config file as passed to the daemon and matched in
// the process table.
func (m *Manager) configPath() string {
	if abs, err := filepath.Abs(m.config.ConfigFile); err == nil {
		return abs
	}
	return m.config.ConfigFile
}

func (m *Manager) signalAll(pids []int, sig process.Signal) *errors.ErrorCollection {
	collection := errors.NewErrorCollection()
	for _, pid := range pids {
		if err := m.signal(pid, sig); err != nil {
			m.logger.Errorf("Failed to send %s to PID %d: %v", sig, pid, err)
			collection.Add(err)
		}
	}
	return collection
}

func (m *Manager) signal(pid int, sig process.Signal) error {
	if len(m.config.SearchdSudo) == 0 {
		return m.deps.Signaller.Signal(pid, sig)
	}

	execution := withPrefix(m.config.SearchdSudo, "kill", []string{"-" + sig.Name(), strconv.Itoa(pid)})
	outcome := m.deps.Runner.Run(execution)
	if outcome.Success() {
		return nil
	}
	// kill exits non-zero for a PID that is already gone.
	if _, alive := m.aliveSet([]int{pid})[pid]; !alive {
		return nil
	}
	return errors.NewDomainError(errors.ErrorTypeSignal, fmt.Sprintf("%q failed: %+v", execution.Argv(), outcome), outcome.LaunchErr).WithContext("pid", pid)
}

func (m *Manager) waitGone(pids []int) bool {
	return m.deps.Waiter.WaitUntil(m.config.Timeout(), func() bool {
		procs, err := m.deps.Table.Processes()
		if err != nil {
			m.logger.Warnf("Process table query failed while waiting for stop: %v", err)
			return false
		}
		for _, p := range procs {
			for _, pid := range pids {
				if p.PID == pid {
					return false
				}
			}
		}
		return true
	})
}

func (m *Manager) aliveSet(pids []int) map[int]struct{} {
	alive := make(map[int]struct{})
	procs, err := m.deps.Table.Processes()
	if err != nil {
		for _, pid := range pids {
			alive[pid] = struct{}{}
		}
		return alive
	}
	for _, p := range procs {
		for _, pid := range pids {
			if p.PID == pid {
				alive[pid] = struct{}{}
			}
		}
	}
	return alive
}

func (m *Manager) alive(pids []int) []int {
	set := m.aliveSet(pids)
	var result []int
	for _, pid := range pids {
		if _, ok := set[pid]; ok {
			result = append(result, pid)
		}
	}
	return result
}

// launchConfig is withPrefix plus the configured working directory and
// environment.
func (m *Manager) launchConfig(prefix []string, path string, args []string) process.ExecutionConfig {
	execution := withPrefix(prefix, path, args)
	execution.WorkingDirectory = m.config.WorkingDirectory
	if len(m.config.Environment) > 0 {
		execution.Environment = append([]string(nil), m.config.Environment...)
	}
	return execution
}

func withPrefix(prefix []string, path string, args []string) process.ExecutionConfig {
	if len(prefix) == 0 {
		return process.ExecutionConfig{ExecutablePath: path, Args: args}
	}
	full := append(append(append([]string(nil), prefix[1:]...), path), args...)
	return process.ExecutionConfig{ExecutablePath: prefix[0], Args: full}
}
