// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/internal/errors"
	"github.com/kraklabs/shade/internal/ui"
	"github.com/kraklabs/shade/pkg/ingest"
)

// runDaemon dispatches the 'daemon' subcommands. The daemon is a
// foreground watch loop: it polls the working tree and runs an
// incremental scan whenever the set of uncommitted FEL files (untracked
// ones included) is non-empty and differs from the set it last scanned,
// so the stored report and evidence stay fresh between manual scans.
//
// Examples:
//
//	shade daemon start                 Watch and rescan in the foreground
//	shade daemon start --interval 30s  Poll every 30 seconds
//	shade daemon stop                  Signal a running daemon to exit
func runDaemon(args []string, configPath string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: shade daemon <start|stop> [options]")
		os.Exit(1)
	}
	switch args[0] {
	case "start":
		runDaemonStart(args[1:], configPath, globals)
	case "stop":
		runDaemonStop(configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown daemon subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func pidFilePath(root string) string {
	return filepath.Join(config.Dir(root), "daemon.pid")
}

func runDaemonStart(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("daemon start", flag.ExitOnError)
	interval := fs.Duration("interval", 10*time.Second, "Polling interval for working-tree changes")
	metricsAddr := fs.String("metrics-addr", "", "Accepted for command-line compatibility; the daemon serves no metrics endpoint")
	_ = metricsAddr
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade daemon start [options]

Runs a foreground watch loop: every interval, uncommitted changes to
source files (untracked ones included) trigger an incremental scan when
the set of changed files differs from the last one scanned. Stop with Ctrl-C or
'shade daemon stop' from another terminal.

Options:
%s`, fs.FlagUsages())
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	pidPath := pidFilePath(cfg.RepoRoot)
	if data, err := os.ReadFile(pidPath); err == nil { //nolint:gosec // G304: pid file under .shade
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && processAlive(pid) {
			fmt.Fprintf(os.Stderr, "Error: daemon already running (pid %d)\n", pid)
			os.Exit(1)
		}
	}
	if err := os.MkdirAll(config.Dir(cfg.RepoRoot), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o640); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write pid file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.Remove(pidPath) }()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("daemon.shutdown.signal", "signal", sig.String())
		cancel()
	}()

	ui.Infof("Watching %s every %s (pid %d)", cfg.RepoRoot, interval.String(), os.Getpid())
	logger.Info("daemon.start", "root", cfg.RepoRoot, "interval", interval.String())

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var lastScanned string
	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon.stop")
			return
		case <-ticker.C:
		}

		changed := dirtyFiles(cfg.RepoRoot)
		if len(changed) == 0 {
			continue
		}
		key := strings.Join(changed, ",")
		if key == lastScanned {
			continue
		}

		logger.Info("daemon.rescan", "changed", len(changed))
		report, err := executeScan(ctx, cfg, key, "", "", nil, logger)
		if err != nil {
			logger.Warn("daemon.rescan.error", "err", err)
			continue
		}
		lastScanned = key
		logger.Info("daemon.rescan.done", "scan_id", report.ScanID,
			"units", report.Summary.TotalUnits, "shadow_units", report.Summary.ShadowUnits)
	}
}

func runDaemonStop(configPath string, globals GlobalFlags) {
	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	pidPath := pidFilePath(cfg.RepoRoot)
	data, err := os.ReadFile(pidPath) //nolint:gosec // G304: pid file under .shade
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: no daemon pid file; is the daemon running?")
		os.Exit(1)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: malformed pid file %s\n", pidPath)
		os.Exit(1)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		_ = os.Remove(pidPath)
		fmt.Fprintf(os.Stderr, "Error: cannot signal pid %d: %v (stale pid file removed)\n", pid, err)
		os.Exit(1)
	}
	ui.Successf("Sent SIGTERM to daemon (pid %d)", pid)
}

// processAlive reports whether pid refers to a live process we may signal.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// dirtyFiles lists uncommitted changes to analyzable files, relative to
// root, via git status --porcelain. A repository without git yields nil;
// the daemon then simply never triggers.
func dirtyFiles(root string) []string {
	out, err := exec.Command("git", "-C", root, "status", "--porcelain").Output()
	if err != nil {
		return nil
	}
	var changed []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames are reported as "old -> new"; the new path is the one on disk.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		if ingest.IncludedExtensions[filepath.Ext(path)] {
			changed = append(changed, path)
		}
	}
	return changed
}
