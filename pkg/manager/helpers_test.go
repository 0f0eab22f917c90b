package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/core-tools/hsu-searchd/pkg/logging"
	"github.com/core-tools/hsu-searchd/pkg/process"
	"github.com/core-tools/hsu-searchd/pkg/processtable"
	"github.com/core-tools/hsu-searchd/pkg/waiter"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seconds(n int) *int {
	return &n
}

// fakeTable is an in-memory process table.
type fakeTable struct {
	procs   map[int]string
	queries int
	err     error
}

func newFakeTable() *fakeTable {
	return &fakeTable{procs: make(map[int]string)}
}

func (t *fakeTable) Processes() ([]processtable.Match, error) {
	t.queries++
	if t.err != nil {
		return nil, t.err
	}
	result := make([]processtable.Match, 0, len(t.procs))
	for pid, cmdline := range t.procs {
		result = append(result, processtable.Match{PID: pid, CommandLine: cmdline})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PID < result[j].PID })
	return result, nil
}

// staticLookup serves config sections from memory and counts loads.
type staticLookup struct {
	pidFiles map[string]string
	loads    int
	err      error
}

func (l *staticLookup) Section(path, section string) (map[string]string, error) {
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	if section != DaemonSection {
		return map[string]string{}, nil
	}
	return map[string]string{PIDFileKey: l.pidFiles[path]}, nil
}

// Survival modes for a fake daemon process.
const (
	diesOnTerminate = iota
	diesOnKill
	survivesAll
)

type sentSignal struct {
	PID    int
	Signal process.Signal
}

// fakeSignaller records signals and removes processes from the table
// according to their survival mode.
type fakeSignaller struct {
	table *fakeTable
	modes map[int]int
	sent  []sentSignal
}

func (s *fakeSignaller) Signal(pid int, sig process.Signal) error {
	s.sent = append(s.sent, sentSignal{pid, sig})
	switch {
	case sig == process.SignalTerminate && s.modes[pid] == diesOnTerminate:
		delete(s.table.procs, pid)
	case sig == process.SignalKill && s.modes[pid] != survivesAll:
		delete(s.table.procs, pid)
	}
	return nil
}

type MockSpawner struct {
	mock.Mock
}

func (m *MockSpawner) SpawnDetached(execution process.ExecutionConfig) (int, error) {
	args := m.Called(execution)
	return args.Int(0), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(execution process.ExecutionConfig) process.Outcome {
	args := m.Called(execution)
	return args.Get(0).(process.Outcome)
}

type fakeClock struct {
	current time.Time
	sleeps  int
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.current = c.current.Add(d)
}

type testEnv struct {
	configFile string
	pidFile    string
	binDir     string
	table      *fakeTable
	lookup     *staticLookup
	signaller  *fakeSignaller
	spawner    *MockSpawner
	runner     *MockRunner
	clock      *fakeClock
	manager    *Manager
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()

	env := &testEnv{
		configFile: filepath.Join(dir, "sphinx.conf"),
		pidFile:    filepath.Join(dir, "searchd.pid"),
		binDir:     filepath.Join(dir, "bin"),
		table:      newFakeTable(),
		spawner:    &MockSpawner{},
		runner:     &MockRunner{},
		clock:      &fakeClock{current: time.Unix(1700000000, 0)},
	}
	require.NoError(t, os.Mkdir(env.binDir, 0755))
	env.lookup = &staticLookup{pidFiles: map[string]string{env.configFile: env.pidFile}}
	env.signaller = &fakeSignaller{table: env.table, modes: make(map[int]int)}

	config := Config{
		ConfigFile:     env.configFile,
		BinDir:         env.binDir,
		ProcessTimeout: seconds(3),
	}
	if mutate != nil {
		mutate(&config)
	}

	m, err := NewManager(config, Dependencies{
		Lookup:    env.lookup,
		Table:     env.table,
		Spawner:   env.spawner,
		Runner:    env.runner,
		Signaller: env.signaller,
		Waiter:    waiter.NewWaiterWithClock(time.Second, env.clock.Now, env.clock.Sleep),
	}, logging.NewNopLogger())
	require.NoError(t, err)
	env.manager = m
	return env
}

func (e *testEnv) daemonCmdline() string {
	return fmt.Sprintf("%s/searchd --config %s", e.binDir, e.configFile)
}

func (e *testEnv) addDaemon(pid int, mode int) {
	e.table.procs[pid] = e.daemonCmdline()
	e.signaller.modes[pid] = mode
}

func (e *testEnv) writePIDFile(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.pidFile, []byte(content), 0644))
}

func (e *testEnv) writeBinary(t *testing.T, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(e.binDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
	return path
}
