package manager

import (
	"sort"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
	"github.com/core-tools/hsu-searchd/pkg/processfile"
	"github.com/core-tools/hsu-searchd/pkg/processtable"
	"github.com/core-tools/hsu-searchd/pkg/sphinxconf"
)

// resolvedConfigState caches the pid_file value parsed out of a config
// file. It is valid only for the config file path it was loaded from.
type resolvedConfigState struct {
	loaded     bool
	configFile string
	pidFile    string
}

// discovery is the evidence gathered by one lookup.
type discovery struct {
	pidFile string
	// filePID is the PID read from pidFile, zero when none was read.
	filePID int
	// verified is set when filePID was confirmed by the process table.
	verified bool
	matches  []processtable.Match
}

// PidResolver decides which PID file is authoritative and which live
// processes are the daemon.
type PidResolver struct {
	pidFileOverride string
	daemonName      string
	lookup          sphinxconf.Lookup
	table           processtable.Query
	reader          *processfile.PIDFileReader
	logger          logging.Logger

	cache resolvedConfigState
}

func NewPidResolver(pidFileOverride, daemonName string, lookup sphinxconf.Lookup, table processtable.Query, logger logging.Logger) *PidResolver {
	return &PidResolver{
		pidFileOverride: pidFileOverride,
		daemonName:      daemonName,
		lookup:          lookup,
		table:           table,
		reader:          processfile.NewPIDFileReader(logger),
		logger:          logger,
	}
}

// ResolvePIDFilePath returns the explicit override if set, otherwise the
// pid_file of the daemon section in configFile. The parsed value is reused
// until configFile changes. An empty result means the config names no PID file.
func (r *PidResolver) ResolvePIDFilePath(configFile string) (string, error) {
	if r.pidFileOverride != "" {
		return r.pidFileOverride, nil
	}
	if r.cache.loaded && r.cache.configFile == configFile {
		return r.cache.pidFile, nil
	}

	r.logger.Debugf("Loading config file, path: %s, section: %s", configFile, DaemonSection)
	settings, err := r.lookup.Section(configFile, DaemonSection)
	if err != nil {
		if errors.IsConfigError(err) {
			return "", err
		}
		return "", errors.NewConfigError("failed to load config file "+configFile, err).WithContext("config_file", configFile)
	}

	pidFile := settings[PIDFileKey]
	if pidFile == "" {
		r.logger.Warnf("Config file has no %s in section %s, path: %s", PIDFileKey, DaemonSection, configFile)
	}
	r.cache = resolvedConfigState{loaded: true, configFile: configFile, pidFile: pidFile}
	return pidFile, nil
}

// FindDaemonPIDs returns every live daemon process for configFile. An
// empty result means the daemon is not running.
func (r *PidResolver) FindDaemonPIDs(configFile string) ([]processtable.Match, error) {
	d, err := r.discover(configFile)
	if err != nil {
		return nil, err
	}
	return d.matches, nil
}

func (r *PidResolver) discover(configFile string) (discovery, error) {
	var d discovery

	pidFile, err := r.ResolvePIDFilePath(configFile)
	if err != nil {
		return d, err
	}
	d.pidFile = pidFile

	if pidFile != "" {
		pid, found, err := r.reader.ReadPID(pidFile)
		if err != nil {
			// Unreadable or corrupt files are treated like stale ones.
			r.logger.Warnf("Ignoring PID file, path: %s, error: %v", pidFile, err)
		} else if found {
			d.filePID = pid
			m, ok, err := processtable.VerifyPID(r.table, pid, r.daemonName)
			if err != nil {
				return d, err
			}
			if ok {
				r.logger.Debugf("PID file confirmed by process table, pid: %d, cmdline: %s", pid, m.CommandLine)
				d.verified = true
				d.matches = []processtable.Match{m}
				return d, nil
			}
			r.logger.Infof("PID file is stale, pid: %d, path: %s", pid, pidFile)
		}
	}

	pattern := processtable.DaemonPattern(r.daemonName, configFile)
	r.logger.Debugf("Scanning process table, pattern: %s", pattern)
	matches, err := processtable.FindMatching(r.table, pattern)
	if err != nil {
		return d, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].PID < matches[j].PID })
	if len(matches) > 1 {
		r.logger.Warnf("Found %d daemon instances for config %s", len(matches), configFile)
	}
	d.matches = matches
	return d, nil
}

func pidsOf(matches []processtable.Match) []int {
	pids := make([]int, 0, len(matches))
	for _, m := range matches {
		pids = append(pids, m.PID)
	}
	return pids
}
