//go:build !windows

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

// fakesearchd stands in for searchd and indexer when trying searchctl
// end to end: symlink or copy it into a bindir as both names.
type flagOptions struct {
	Config      string `short:"c" long:"config" description:"config file (only recorded)"`
	PIDFile     string `long:"pid-file" description:"PID file to write while running"`
	IgnoreTerm  bool   `long:"ignore-term" description:"ignore SIGTERM so only SIGKILL stops the daemon"`
	RunDuration int    `long:"run-duration" description:"exit after this many seconds"`
	ExitCode    int    `long:"exit-code" description:"indexer mode: exit immediately with this code"`
	KillSelf    int    `long:"kill-self" description:"indexer mode: terminate with this signal number"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	if filepath.Base(os.Args[0]) == "indexer" || opts.ExitCode != 0 || opts.KillSelf != 0 {
		runIndexer(opts)
		return
	}
	runDaemon(opts)
}

func runIndexer(opts flagOptions) {
	fmt.Printf("fakesearchd indexing, config: %s\n", opts.Config)
	if opts.KillSelf != 0 {
		syscall.Kill(os.Getpid(), syscall.Signal(opts.KillSelf))
		time.Sleep(time.Second)
	}
	os.Exit(opts.ExitCode)
}

func runDaemon(opts flagOptions) {
	if opts.PIDFile != "" {
		if err := os.WriteFile(opts.PIDFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
			fmt.Printf("Failed to write PID file: %v\n", err)
			os.Exit(1)
		}
		defer os.Remove(opts.PIDFile)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

	var deadline <-chan time.Time
	if opts.RunDuration > 0 {
		deadline = time.After(time.Duration(opts.RunDuration) * time.Second)
	}

	fmt.Printf("fakesearchd running, PID: %d, config: %s\n", os.Getpid(), opts.Config)
	for {
		select {
		case s := <-sig:
			switch s {
			case syscall.SIGHUP:
				fmt.Printf("fakesearchd reloading config %s\n", opts.Config)
				continue
			case syscall.SIGTERM:
				if opts.IgnoreTerm {
					fmt.Printf("fakesearchd ignoring SIGTERM\n")
					continue
				}
			}
			fmt.Printf("fakesearchd received %v, stopping\n", s)
			return
		case <-deadline:
			fmt.Printf("fakesearchd run duration elapsed\n")
			return
		}
	}
}
