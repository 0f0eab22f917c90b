package manager

import (
	"fmt"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/locator"
)

// RunIndexer runs the indexer to completion with --config, the configured
// indexer arguments and extraArgs, and classifies how it ended.
func (m *Manager) RunIndexer(extraArgs ...string) error {
	path, err := m.deps.Locator.Locate(m.config.IndexerName)
	if err != nil {
		return err
	}
	if !locator.IsExecutable(path) {
		return errors.NewExecutableNotFoundError(path+" is not executable", nil).WithContext("path", path)
	}

	args := append([]string{"--config", m.configPath()}, m.config.IndexerArgs...)
	args = append(args, extraArgs...)
	execution := m.launchConfig(m.config.IndexerSudo, path, args)

	m.logger.Infof("Running %q", execution.Argv())
	outcome := m.deps.Runner.Run(execution)

	switch {
	case outcome.NoChild:
		// The child was reaped by someone else; its status is unknowable.
		m.logger.Debugf("Indexer already reaped, treating as success")
		return nil
	case outcome.LaunchErr != nil:
		return errors.NewLaunchError("failed to execute "+path, outcome.LaunchErr).WithContext("argv", execution.Argv())
	case outcome.Signaled:
		return errors.NewSignalError(fmt.Sprintf("%s died with signal %d", path, outcome.Signal), outcome.Signal, outcome.CoreDumped)
	case outcome.ExitCode != 0:
		return errors.NewExitStatusError(fmt.Sprintf("%s exited with value %d", path, outcome.ExitCode), outcome.ExitCode)
	}

	m.logger.Infof("Indexer finished successfully")
	return nil
}
