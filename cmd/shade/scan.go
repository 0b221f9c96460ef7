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
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/internal/errors"
	"github.com/kraklabs/shade/internal/output"
	"github.com/kraklabs/shade/pkg/cache"
	"github.com/kraklabs/shade/pkg/evidence"
	"github.com/kraklabs/shade/pkg/model"
	"github.com/kraklabs/shade/pkg/pipeline"
	"github.com/kraklabs/shade/pkg/rules"
)

// runScan executes the 'scan' CLI command, running one full or
// incremental scan of the configured repository.
//
// Flags:
//   - --changed: Comma-separated changed file list; switches to an incremental scan
//   - --commit: Commit SHA to attribute the scan to (default: HEAD)
//   - --branch: Branch name to record in the report (default: current branch)
//   - --debug: Enable debug logging (default: false)
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	shade scan                            Full scan
//	shade scan --changed src/App.tsx      Incremental scan over one file
//	shade scan --metrics-addr :9463       Full scan with /metrics exposed
func runScan(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	changed := fs.String("changed", "", "Comma-separated changed files (relative to repo root); runs an incremental scan")
	commitFlag := fs.String("commit", "", "Commit SHA to scan (default: HEAD)")
	branchFlag := fs.String("branch", "", "Branch name to record (default: current branch)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade scan [options]

Scans the repository configured in .shade/project.yaml. Without --changed
a full scan runs; with it, an incremental scan restricted to the listed
files, reusing the previous report's clusters for untouched Units.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	if globals.Quiet && !*debug {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	var metrics *pipeline.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = pipeline.NewMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	report, err := executeScan(ctx, cfg, *changed, *commitFlag, *branchFlag, metrics, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		if err := output.JSON(toReportJSON(report)); err != nil {
			errors.FatalError(err, true)
		}
		return
	}
	printReport(report)
}

// executeScan wires one Pipeline run: cache store, rule set, git client,
// prior-report reuse, and report persistence. daemon.go reuses it for
// every watch-mode rescan.
func executeScan(ctx context.Context, cfg *config.Project, changed, commitSHA, branch string, metrics *pipeline.Metrics, logger *slog.Logger) (*model.ScanReport, error) {
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, errors.NewCacheError(
			"Cannot open the scan cache",
			fmt.Sprintf("Cache directory %s is not writable", cfg.CacheDir),
			"Fix directory permissions or point cache_dir elsewhere",
			err,
		)
	}

	ruleSet := rules.Default()
	if cfg.RulesPath != "" {
		ruleSet, err = rules.Load(cfg.RulesPath)
		if err != nil {
			return nil, errors.NewConfigError(
				"Cannot load rule file",
				fmt.Sprintf("Rule file %s failed to parse", cfg.RulesPath),
				"Run 'shade rules validate' against the file",
				err,
			)
		}
		if errs := rules.Validate(ruleSet); len(errs) > 0 {
			return nil, errors.NewConfigError(
				"Rule file is invalid",
				errs[0].Error(),
				"Run 'shade rules validate' for the full error list",
				nil,
			)
		}
	}

	if commitSHA == "" {
		commitSHA = resolveCommit(cfg.RepoRoot, "")
	}
	if branch == "" {
		branch = resolveBranch(cfg.RepoRoot)
	}

	req := pipeline.Request{
		Kind:     model.ScanFull,
		RepoRoot: cfg.RepoRoot,
		Commit:   commitSHA,
		Branch:   branch,
	}
	if changed != "" {
		req.Kind = model.ScanIncremental
		for _, f := range strings.Split(changed, ",") {
			if f = strings.TrimSpace(f); f != "" {
				req.ChangedFiles = append(req.ChangedFiles, f)
			}
		}
	}

	vcs := evidence.NewGitClient(cfg.RepoRoot, logger)
	p := pipeline.New(cfg, vcs, ruleSet, store, metrics, logger)
	defer func() { _ = p.Close() }()

	prior := loadLatestReport(cfg.RepoRoot)
	report, err := p.Run(ctx, req, prior)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewDeadlineError(
				"Scan exceeded its hard deadline",
				err.Error(),
				"Raise deadlines.full_minutes / deadlines.incremental_seconds in project.yaml, or narrow the scan",
				err,
			)
		}
		return nil, err
	}
	if report.Failed {
		if err := saveReport(cfg.RepoRoot, report); err != nil {
			logger.Warn("report.save.error", "err", err)
		}
		return nil, errors.NewDeadlineError(
			"Scan exceeded its hard deadline",
			fmt.Sprintf("Scan %s failed: %s", report.ScanID, report.FailReason),
			"Raise deadlines.full_minutes / deadlines.incremental_seconds in project.yaml, or narrow the scan",
			nil,
		)
	}

	if err := saveReport(cfg.RepoRoot, report); err != nil {
		logger.Warn("report.save.error", "err", err)
	}
	return report, nil
}
