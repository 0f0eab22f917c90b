//go:build windows

package process

import (
	"fmt"
	"os"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
)

type StdSignaller struct {
	logger logging.Logger
}

func NewStdSignaller(logger logging.Logger) *StdSignaller {
	return &StdSignaller{logger: logger}
}

// Signal terminates the process for both TERM and KILL; Windows has no
// console-less graceful request and no reload signal.
func (s *StdSignaller) Signal(pid int, sig Signal) error {
	if pid <= 0 {
		return errors.NewValidationError(fmt.Sprintf("invalid PID: %d", pid), nil)
	}
	if sig == SignalReload {
		return errors.NewValidationError("reload signal is not supported on windows", nil).WithContext("pid", pid)
	}

	// FindProcess opens a handle on Windows and fails for exited PIDs.
	proc, err := os.FindProcess(pid)
	if err != nil {
		s.logger.Debugf("PID %d already gone, %s not delivered", pid, sig)
		return nil
	}
	defer proc.Release()

	if err := proc.Kill(); err != nil {
		return errors.NewDomainError(errors.ErrorTypeSignal, fmt.Sprintf("failed to send %s to PID %d", sig, pid), err).WithContext("pid", pid)
	}
	return nil
}
