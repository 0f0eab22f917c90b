package processtable

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/core-tools/hsu-searchd/pkg/errors"

	"github.com/shirou/gopsutil/v4/process"
)

// Match is one live process picked out of the table, with the command
// line that caused it to be selected.
type Match struct {
	PID         int
	CommandLine string
}

// Query enumerates live processes.
type Query interface {
	Processes() ([]Match, error)
}

// GopsutilQuery reads the OS process table through gopsutil. The calling
// process is left out: a manager invoked with the daemon's config path on
// its own command line must never find, or signal, itself.
type GopsutilQuery struct {
	self int
}

func NewGopsutilQuery() *GopsutilQuery {
	return &GopsutilQuery{self: os.Getpid()}
}

func (q *GopsutilQuery) Processes() ([]Match, error) {
	ctx := context.Background()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.NewProcessTableError("failed to enumerate processes", err)
	}

	result := make([]Match, 0, len(procs))
	for _, p := range procs {
		if int(p.Pid) == q.self {
			continue
		}
		// Processes exit between enumeration and inspection; those are skipped.
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		result = append(result, Match{PID: int(p.Pid), CommandLine: cmdline})
	}
	return result, nil
}

// MatchCommandLine reports whether a free-form command line matches pattern.
func MatchCommandLine(commandLine string, pattern *regexp.Regexp) bool {
	if pattern == nil {
		return false
	}
	return pattern.MatchString(commandLine)
}

// DaemonPattern matches a command line whose program word is daemonName,
// optionally with a directory and an .exe suffix, and that passes the
// literal configFile through --config or -c. The name appearing elsewhere,
// such as inside a bindir path or after a sudo wrapper, does not count.
func DaemonPattern(daemonName, configFile string) *regexp.Regexp {
	return regexp.MustCompile(`^(\S*[/\\])?` + regexp.QuoteMeta(daemonName) + `(\.exe)?"?` +
		`(\s.*)?\s(--config|-c)(\s+|=)` + regexp.QuoteMeta(configFile) + `(\s|$)`)
}

// FindByPID returns the table entry for pid, if it is live.
func FindByPID(q Query, pid int) (Match, bool, error) {
	procs, err := q.Processes()
	if err != nil {
		return Match{}, false, err
	}
	for _, p := range procs {
		if p.PID == pid {
			return p, true, nil
		}
	}
	return Match{}, false, nil
}

// VerifyPID accepts pid only when it is live and its command line
// mentions daemonName.
func VerifyPID(q Query, pid int, daemonName string) (Match, bool, error) {
	m, found, err := FindByPID(q, pid)
	if err != nil || !found {
		return Match{}, false, err
	}
	if !strings.Contains(m.CommandLine, daemonName) {
		return Match{}, false, nil
	}
	return m, true, nil
}

// FindMatching returns every live process whose command line matches pattern.
func FindMatching(q Query, pattern *regexp.Regexp) ([]Match, error) {
	procs, err := q.Processes()
	if err != nil {
		return nil, err
	}
	var matches []Match
	for _, p := range procs {
		if MatchCommandLine(p.CommandLine, pattern) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Static is a fixed process table. Tests and dry runs use it.
type Static []Match

func (s Static) Processes() ([]Match, error) {
	return append([]Match(nil), s...), nil
}
