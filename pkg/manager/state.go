package manager

import (
	"fmt"
)

// LifecycleState is where the last operation left the daemon, as far as
// this manager observed it.
type LifecycleState string

const (
	StateNotRunning LifecycleState = "not_running"
	StateStarting   LifecycleState = "starting"
	StateRunning    LifecycleState = "running"
	StateStopping   LifecycleState = "stopping"
	StateFailed     LifecycleState = "failed"
)

// DaemonState is derived on demand from the PID file and process table.
type DaemonState string

const (
	DaemonNotRunning    DaemonState = "not_running"
	DaemonRunning       DaemonState = "running"
	DaemonIndeterminate DaemonState = "indeterminate"
)

// DaemonStatus is the result of Manager.Status.
type DaemonStatus struct {
	State   DaemonState
	PIDs    []int
	PIDFile string
	// FilePID is the PID the PID file names, zero if it names none.
	FilePID int
}

func (s DaemonStatus) String() string {
	switch s.State {
	case DaemonRunning:
		return fmt.Sprintf("running, pids: %v", s.PIDs)
	case DaemonIndeterminate:
		return fmt.Sprintf("indeterminate, pid file %s names %d but no such daemon process exists", s.PIDFile, s.FilePID)
	}
	return "not running"
}
