package process

import (
	"fmt"
)

// Signal is one of the three requests sent to the daemon.
type Signal int

const (
	SignalTerminate Signal = iota
	SignalKill
	SignalReload
)

// Name is the signal name as kill(1) accepts it.
func (s Signal) Name() string {
	switch s {
	case SignalTerminate:
		return "TERM"
	case SignalKill:
		return "KILL"
	case SignalReload:
		return "HUP"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

func (s Signal) String() string {
	return "SIG" + s.Name()
}

// Signaller delivers signals. Signalling a PID that no longer exists is
// not an error.
type Signaller interface {
	Signal(pid int, sig Signal) error
}
