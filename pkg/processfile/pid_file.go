package processfile

import (
	"os"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
)

// PIDFileReader reads the PID file the daemon writes for itself. The
// file is never written from this side.
type PIDFileReader struct {
	logger logging.Logger
}

func NewPIDFileReader(logger logging.Logger) *PIDFileReader {
	return &PIDFileReader{logger: logger}
}

// ReadPID returns the PID stored in path. A missing or empty file yields
// found == false with no error; unreadable or malformed content is an error.
func (r *PIDFileReader) ReadPID(path string) (pid int, found bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debugf("PID file does not exist, path: %s", path)
			return 0, false, nil
		}
		r.logger.Warnf("Failed to read PID file, path: %s, error: %v", path, err)
		return 0, false, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", path)
	}

	// The daemon may write the PID followed by other lines; only the first counts.
	pidStr := strings.TrimSpace(string(content))
	if i := strings.IndexAny(pidStr, "\r\n"); i >= 0 {
		pidStr = strings.TrimSpace(pidStr[:i])
	}
	if pidStr == "" {
		r.logger.Debugf("PID file is empty, path: %s", path)
		return 0, false, nil
	}

	pid, err = ValidatePID(pidStr)
	if err != nil {
		r.logger.Warnf("Invalid PID content in PID file, path: %s, content: %q", path, pidStr)
		return 0, false, errors.NewValidationError("invalid PID in PID file", err).WithContext("pid_file", path).WithContext("content", pidStr)
	}

	r.logger.Debugf("PID file read successfully, pid: %d, path: %s", pid, path)
	return pid, true, nil
}

// ValidatePID validates PID value
func ValidatePID(pidStr string) (int, error) {
	if pidStr == "" {
		return 0, errors.NewValidationError("PID cannot be empty", nil)
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID format: "+pidStr, err)
	}

	if pid <= 0 {
		return 0, errors.NewValidationError("PID must be positive: "+pidStr, nil)
	}

	return pid, nil
}
