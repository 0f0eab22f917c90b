//go:build !windows

package process

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
)

type StdSignaller struct {
	logger logging.Logger
}

func NewStdSignaller(logger logging.Logger) *StdSignaller {
	return &StdSignaller{logger: logger}
}

func (s *StdSignaller) Signal(pid int, sig Signal) error {
	if pid <= 0 {
		return errors.NewValidationError(fmt.Sprintf("invalid PID: %d", pid), nil)
	}

	var unixSig unix.Signal
	switch sig {
	case SignalTerminate:
		unixSig = unix.SIGTERM
	case SignalKill:
		unixSig = unix.SIGKILL
	case SignalReload:
		unixSig = unix.SIGHUP
	default:
		return errors.NewValidationError("unsupported signal: "+sig.String(), nil)
	}

	s.logger.Debugf("Sending %s to PID %d", sig, pid)

	err := unix.Kill(pid, unixSig)
	if err == unix.ESRCH {
		s.logger.Debugf("PID %d already gone, %s not delivered", pid, sig)
		return nil
	}
	if err != nil {
		return errors.NewDomainError(errors.ErrorTypeSignal, fmt.Sprintf("failed to send %s to PID %d", sig, pid), err).WithContext("pid", pid)
	}
	return nil
}
