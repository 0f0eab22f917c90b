package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/core-tools/hsu-searchd/pkg/errors"
	"github.com/core-tools/hsu-searchd/pkg/logging"
	"github.com/core-tools/hsu-searchd/pkg/manager"

	flags "github.com/jessevdk/go-flags"
)

type globalOptions struct {
	ManagerConfig  string   `long:"manager-config" description:"YAML file with manager settings"`
	ConfigFile     string   `short:"c" long:"config" description:"search daemon config file"`
	PIDFile        string   `long:"pid-file" description:"PID file path, overrides the one in the config file"`
	BinDir         string   `long:"bindir" description:"directory holding searchd and indexer"`
	SearchdArgs    []string `long:"searchd-arg" description:"extra argument for searchd (repeatable)"`
	IndexerArgs    []string `long:"indexer-arg" description:"extra argument for indexer (repeatable)"`
	ProcessTimeout *int     `short:"t" long:"timeout" description:"seconds to wait for the daemon to start or stop, 0 checks once"`
	Verbose        []bool   `short:"v" long:"verbose" description:"increase debug output (repeatable)"`
}

var opts globalOptions

// errNotRunning is what status returns for a daemon that is not running.
var errNotRunning = stderrors.New("daemon is not running")

type startCommand struct{}
type stopCommand struct{}
type restartCommand struct{}
type reloadCommand struct{}
type statusCommand struct{}
type pidsCommand struct{}
type indexCommand struct{}

func (c *startCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error { return m.Start() })
}

func (c *stopCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error { return m.Stop() })
}

func (c *restartCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error { return m.Restart() })
}

func (c *reloadCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error { return m.Reload() })
}

func (c *statusCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error {
		status, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Println(status)
		if status.State != manager.DaemonRunning {
			return errNotRunning
		}
		return nil
	})
}

func (c *pidsCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error {
		pids, err := m.DaemonPIDs()
		if err != nil {
			return err
		}
		for _, pid := range pids {
			fmt.Println(pid)
		}
		return nil
	})
}

func (c *indexCommand) Execute(args []string) error {
	return withManager(func(m *manager.Manager) error { return m.RunIndexer(args...) })
}

func loadConfig() (manager.Config, error) {
	var config manager.Config
	if opts.ManagerConfig != "" {
		loaded, err := manager.LoadConfigFromFile(opts.ManagerConfig)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	if opts.ConfigFile != "" {
		config.ConfigFile = opts.ConfigFile
	}
	if opts.PIDFile != "" {
		config.PIDFile = opts.PIDFile
	}
	if opts.BinDir != "" {
		config.BinDir = opts.BinDir
	}
	if len(opts.SearchdArgs) > 0 {
		config.SearchdArgs = opts.SearchdArgs
	}
	if len(opts.IndexerArgs) > 0 {
		config.IndexerArgs = opts.IndexerArgs
	}
	if opts.ProcessTimeout != nil {
		timeout := *opts.ProcessTimeout
		config.ProcessTimeout = &timeout
	}
	if len(opts.Verbose) > config.Debug {
		config.Debug = len(opts.Verbose)
	}
	return config, nil
}

func withManager(run func(m *manager.Manager) error) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	zapLogger, err := logging.NewZapLogger(logging.LevelForVerbosity(config.Debug))
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	logger := logging.NewLogger("searchctl: ", logging.ZapLogFuncs(zapLogger.Sugar()))
	logger.Debugf("config: %+v", config)

	m, err := manager.NewManager(config, manager.Dependencies{}, logger)
	if err != nil {
		return err
	}
	return run(m)
}

func exitCode(err error) int {
	if stderrors.Is(err, errNotRunning) {
		return 3
	}

	var exitErr *errors.ExitStatusError
	if stderrors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}

	switch {
	case errors.IsAlreadyRunningError(err):
		return 2
	case errors.IsStopFailedError(err):
		return 4
	case errors.IsConfigError(err), errors.IsValidationError(err), errors.IsIOError(err):
		return 5
	case errors.IsExecutableNotFoundError(err):
		return 127
	}
	return 1
}

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.AddCommand("start", "start the search daemon", "Start searchd detached and wait until it is running.", &startCommand{})
	parser.AddCommand("stop", "stop the search daemon", "Send SIGTERM, then SIGKILL if it does not exit in time.", &stopCommand{})
	parser.AddCommand("restart", "restart the search daemon", "Stop, then start.", &restartCommand{})
	parser.AddCommand("reload", "reload the search daemon", "Send SIGHUP to running instances, or start one.", &reloadCommand{})
	parser.AddCommand("status", "show daemon status", "Exits 3 unless the daemon is running.", &statusCommand{})
	parser.AddCommand("pids", "print daemon PIDs", "Print one PID per running instance.", &pidsCommand{})
	parser.AddCommand("index", "run the indexer", "Run indexer with the given extra arguments, e.g. index -- --rotate --all.", &indexCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(strings.TrimSpace(flagsErr.Message))
			os.Exit(0)
		}
		if !stderrors.Is(err, errNotRunning) {
			fmt.Fprintf(os.Stderr, "searchctl: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}
