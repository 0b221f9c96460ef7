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

// Package pipeline orchestrates one scan end to end: Ingest,
// bounded-parallel Extractor fan-out followed by per-Unit Evidence and
// Similarity-shingle preparation, Similarity clustering, Rules
// evaluation, Scorer aggregation, and ScanReport assembly.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/pkg/cache"
	"github.com/kraklabs/shade/pkg/evidence"
	"github.com/kraklabs/shade/pkg/extract"
	"github.com/kraklabs/shade/pkg/ingest"
	"github.com/kraklabs/shade/pkg/model"
	"github.com/kraklabs/shade/pkg/rules"
	"github.com/kraklabs/shade/pkg/scorer"
	"github.com/kraklabs/shade/pkg/similarity"
)

// parserVersion and extractorVersion are mixed into the unit-feature
// cache key; bump either when the parse or extraction logic
// changes in a way that would invalidate cached Units.
const (
	parserVersion    = "shade-parser-v1"
	extractorVersion = "shade-extractor-v1"
)

// Request is a scan invocation.
type Request struct {
	Kind         model.ScanKind
	RepoRoot     string
	Commit       string
	Branch       string
	ChangedFiles []string // relative to RepoRoot, incremental scans only
}

// Pipeline wires every stage of the Engine together for repeated use
// across scans.
type Pipeline struct {
	logger     *slog.Logger
	loader     *ingest.Loader
	parsers    sync.Pool // *extract.Parser; Tree-sitter parsers are not goroutine-safe
	vcs        evidence.VCSClient
	store      *cache.Store
	excludes   []string
	ruleSet    rules.RuleSet
	weights    scorer.Weights
	thresholds scorer.Thresholds
	simTh      similarity.Thresholds
	windows    evidence.Windows
	workers    int
	deadlines  config.Deadlines
	metrics    *Metrics
}

// New constructs a Pipeline from project configuration and the injected
// VCS client; injection lets tests swap in an in-memory history fake.
func New(cfg *config.Project, vcs evidence.VCSClient, ruleSet rules.RuleSet, store *cache.Store, metrics *Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Concurrency.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pipeline{
		logger:   logger,
		loader:   ingest.NewLoader(logger),
		vcs:      vcs,
		store:    store,
		excludes: cfg.ExcludeGlobs,
		ruleSet:  ruleSet,
		weights:  scorer.DefaultWeights,
		thresholds: scorer.Thresholds{
			ReviewEvidenceShadowMax: cfg.Thresholds.ReviewEvidenceShadowMax,
			CognitiveLoadShadowMin:  cfg.Thresholds.CognitiveLoadShadowMin,
		},
		simTh: similarity.Thresholds{
			Function:  cfg.Thresholds.SimilarityTauFunction,
			Component: cfg.Thresholds.SimilarityTauComponent,
		},
		windows:   evidence.DefaultWindows,
		workers:   workers,
		deadlines: cfg.Deadlines,
		metrics:   metrics,
	}
	p.parsers.New = func() any { return extract.NewParser(logger) }
	return p
}

// Close releases the Pipeline's Loader resources (temp clone directories).
func (p *Pipeline) Close() error { return p.loader.Close() }

// fileUnits is the per-file output of stage 2's fan-out.
type fileUnits struct {
	path  string
	units []model.Unit
}

// Run executes one full or incremental scan and returns its
// ScanReport. prior is the immediately preceding ScanReport for the same
// repository, used for incremental cluster reuse and the runway formula;
// it may be nil on a project's first scan.
func (p *Pipeline) Run(ctx context.Context, req Request, prior *model.ScanReport) (*model.ScanReport, error) {
	start := time.Now()
	scanID := uuid.NewString()

	deadline := p.fullDeadline()
	if req.Kind == model.ScanIncremental {
		deadline = p.incrementalDeadline()
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	p.logger.Info("pipeline.scan.start", "scan_id", scanID, "kind", req.Kind, "root", req.RepoRoot)

	report := &model.ScanReport{
		ScanID:    scanID,
		ScanKind:  req.Kind,
		Repo:      model.RepoCoordinates{Name: filepath.Base(req.RepoRoot), Commit: req.Commit, Branch: req.Branch},
		Timestamp: start,
	}

	files, warnings, err := p.stageIngest(req)
	if err != nil {
		p.recordFailure("ingest")
		return nil, fmt.Errorf("pipeline: ingest: %w", err)
	}
	report.Warnings = append(report.Warnings, warnings...)
	if p.metrics != nil {
		p.metrics.FilesScanned.Add(float64(len(files)))
	}

	if ctx.Err() != nil {
		return p.failDeadline(report, start, "ingest"), nil
	}

	units, evidences, prepared, fanoutWarnings, err := p.stageFanout(ctx, req, files)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return p.failDeadline(report, start, "fan-out"), nil
		}
		p.recordFailure("fanout")
		return nil, fmt.Errorf("pipeline: fan-out: %w", err)
	}
	report.Warnings = append(report.Warnings, fanoutWarnings...)
	if p.metrics != nil {
		p.metrics.UnitsScanned.Add(float64(len(units)))
	}

	clusters := p.stageCluster(req, units, prepared, prior)
	report.Clusters = clusters
	if ctx.Err() != nil {
		return p.failDeadline(report, start, "cluster"), nil
	}

	findings := p.stageRules(units, clusters)
	report.Findings = findings
	if ctx.Err() != nil {
		return p.failDeadline(report, start, "rules"), nil
	}

	scores := p.stageScore(units, evidences, clusters)

	runway := p.runwayInput(req.RepoRoot, prior)
	report.Summary = scorer.ComputeAggregates(units, scores, evidences, clusters, start, runway)

	report.Hotspots = assembleHotspots(units, scores, findings, clusters)
	if ctx.Err() != nil {
		return p.failDeadline(report, start, "score"), nil
	}
	p.saveShadowMap(req.RepoRoot, scores)

	if p.metrics != nil {
		p.metrics.ScanDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
		p.metrics.ShadowUnits.Set(float64(report.Summary.ShadowUnits))
	}

	p.logger.Info("pipeline.scan.complete", "scan_id", scanID, "units", len(units),
		"shadow_units", report.Summary.ShadowUnits, "clusters", len(clusters),
		"duration_ms", time.Since(start).Milliseconds())

	return report, nil
}

func (p *Pipeline) fullDeadline() time.Duration {
	minutes := p.deadlines.FullMinutes
	if minutes <= 0 {
		minutes = 20
	}
	return time.Duration(minutes) * time.Minute
}

func (p *Pipeline) incrementalDeadline() time.Duration {
	seconds := p.deadlines.IncrementalSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

func (p *Pipeline) recordFailure(reason string) {
	if p.metrics != nil {
		p.metrics.ScanFailures.WithLabelValues(reason).Inc()
	}
}

// failDeadline converts a partially built report into a failed-scan
// record: partial results are discarded, and the reason names the stage
// the deadline tripped in plus the elapsed wall-clock time.
func (p *Pipeline) failDeadline(report *model.ScanReport, start time.Time, stage string) *model.ScanReport {
	elapsed := time.Since(start).Round(time.Millisecond)
	p.recordFailure("deadline")
	p.logger.Warn("pipeline.scan.deadline", "scan_id", report.ScanID, "stage", stage, "elapsed_ms", elapsed.Milliseconds())
	return &model.ScanReport{
		ScanID:     report.ScanID,
		ScanKind:   report.ScanKind,
		Repo:       report.Repo,
		Timestamp:  report.Timestamp,
		Failed:     true,
		FailReason: fmt.Sprintf("deadline exceeded after %s in %s stage", elapsed, stage),
	}
}

// stageIngest is scan step 1: file enumeration.
func (p *Pipeline) stageIngest(req Request) ([]ingest.FileInfo, []model.ScanWarning, error) {
	stageStart := time.Now()
	defer p.observeStage("ingest", stageStart)

	if req.Kind == model.ScanIncremental {
		rel := ingest.FilterChanged(req.RepoRoot, req.ChangedFiles, p.excludes)
		files := make([]ingest.FileInfo, 0, len(rel))
		var warnings []model.ScanWarning
		for _, r := range rel {
			full := filepath.Join(req.RepoRoot, r)
			info, err := os.Stat(full)
			if err != nil {
				warnings = append(warnings, model.ScanWarning{Kind: "input", Path: r, Message: err.Error()})
				continue
			}
			files = append(files, ingest.FileInfo{Path: r, FullPath: full, Size: info.Size()})
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		return files, warnings, nil
	}

	result, err := p.loader.Load(req.RepoRoot, p.excludes, 0)
	if err != nil {
		return nil, nil, err
	}
	var warnings []model.ScanWarning
	for _, w := range result.Warnings {
		warnings = append(warnings, model.ScanWarning{Kind: "input", Path: w.Path, Message: w.Message})
	}
	return result.Files, warnings, nil
}

// stageFanout is scan step 2: a bounded-parallel Extractor phase over
// every file, then serial Evidence and Similarity-shingle phases over the
// extracted Units, each consulting Cache.
func (p *Pipeline) stageFanout(ctx context.Context, req Request, files []ingest.FileInfo) ([]model.Unit, map[string]model.Evidence, map[string]similarity.Prepared, []model.ScanWarning, error) {
	stageStart := time.Now()
	defer p.observeStage("fanout", stageStart)

	sem := semaphore.NewWeighted(int64(p.workers))
	g, gctx := errgroup.WithContext(ctx)

	results := make([]fileUnits, len(files))
	warningsCh := make(chan model.ScanWarning, len(files))

	for i, f := range files {
		i, f := i, f
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			units, warn, err := p.extractFile(gctx, f)
			if err != nil {
				warningsCh <- model.ScanWarning{Kind: "parse", Path: f.Path, Message: err.Error()}
				return nil
			}
			if warn != "" {
				warningsCh <- model.ScanWarning{Kind: "parse", Path: f.Path, Message: warn}
			}
			results[i] = fileUnits{path: f.Path, units: units}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	// Per-file errors become warnings inside each worker, so Wait alone
	// cannot surface a tripped deadline; a cancelled submission loop
	// (sem.Acquire failing above) lands here too. Check the parent
	// context, not gctx, which errgroup cancels on every Wait return.
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, nil, err
	}
	close(warningsCh)

	var warnings []model.ScanWarning
	for w := range warningsCh {
		warnings = append(warnings, w)
	}

	var allUnits []model.Unit
	for _, r := range results {
		allUnits = append(allUnits, r.units...)
	}
	sort.Slice(allUnits, func(i, j int) bool {
		if allUnits[i].FilePath != allUnits[j].FilePath {
			return allUnits[i].FilePath < allUnits[j].FilePath
		}
		return allUnits[i].ID < allUnits[j].ID
	})

	evidences := make(map[string]model.Evidence, len(allUnits))
	prepared := make(map[string]similarity.Prepared, len(allUnits))
	now := time.Now()
	historyWarned := map[string]bool{}
	for _, u := range allUnits {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, nil, err
		}
		ev := p.evidenceForUnit(ctx, req, u, now)
		if ev.Unavailable && !historyWarned[u.FilePath] {
			historyWarned[u.FilePath] = true
			warnings = append(warnings, model.ScanWarning{Kind: "history", Path: u.FilePath, Message: "version-control history unavailable"})
		}
		evidences[u.ID] = ev
		prepared[u.ID] = p.prepareSimilarity(u)
	}

	return allUnits, evidences, prepared, warnings, nil
}

// extractFile reads one file and extracts its Units, going through Cache
// keyed by (file content hash, parser version, extractor version).
func (p *Pipeline) extractFile(ctx context.Context, f ingest.FileInfo) ([]model.Unit, string, error) {
	content, err := os.ReadFile(f.FullPath)
	if err != nil {
		return nil, "", fmt.Errorf("read: %w", err)
	}

	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])
	key := cache.Key(contentHash, parserVersion, extractorVersion)

	units, err := cache.GetOrCompute(p.store, key, cache.KindUnitFeatures.TTL(true), func() ([]model.Unit, error) {
		parser := p.parsers.Get().(*extract.Parser)
		defer p.parsers.Put(parser)
		return extract.ExtractFile(ctx, parser, f.Path, content)
	})
	if err != nil {
		return nil, "", err
	}
	return units, "", nil
}

// evidenceForUnit computes or retrieves a Unit's review evidence, keyed
// by (commit SHA, file path, span hash).
func (p *Pipeline) evidenceForUnit(ctx context.Context, req Request, u model.Unit, now time.Time) model.Evidence {
	spanHash := cache.Key(fmt.Sprintf("%d:%d", u.Span.StartLine, u.Span.EndLine))
	key := cache.Key(req.Commit, u.FilePath, spanHash)

	ev, err := cache.GetOrCompute(p.store, key, cache.KindEvidence.TTL(req.Kind == model.ScanFull), func() (model.Evidence, error) {
		result, ok := evidence.Compute(ctx, p.vcs, u, now, p.windows)
		if !ok {
			return result, fmt.Errorf("evidence unavailable")
		}
		return result, nil
	})
	if err != nil {
		return model.Evidence{UnitID: u.ID, Unavailable: true}
	}
	return ev
}

// prepareSimilarity computes or retrieves a Unit's shingles and MinHash
// signature, keyed by (Unit identifier, normalizer version).
func (p *Pipeline) prepareSimilarity(u model.Unit) similarity.Prepared {
	key := cache.Key(u.ID, similarity.NormalizerVersion())
	type wire struct {
		Shingles  []string             `json:"shingles"`
		Signature similarity.Signature `json:"signature"`
	}

	result, err := cache.GetOrCompute(p.store, key, cache.KindSimilarity.TTL(true), func() (wire, error) {
		prep := similarity.Prepare(u)
		shingles := make([]string, 0, len(prep.Shingles))
		for s := range prep.Shingles {
			shingles = append(shingles, s)
		}
		return wire{Shingles: shingles, Signature: prep.Signature}, nil
	})
	if err != nil {
		return similarity.Prepared{}
	}
	set := make(map[string]bool, len(result.Shingles))
	for _, s := range result.Shingles {
		set[s] = true
	}
	return similarity.Prepared{Shingles: set, Signature: result.Signature}
}

// stageCluster is the clustering step, moved ahead of Rules evaluation (step 3 in
// the literal step order) because REDUN-001 needs cluster membership to
// evaluate; see the pipeline-ordering note in the design notes.
func (p *Pipeline) stageCluster(req Request, units []model.Unit, prepared map[string]similarity.Prepared, prior *model.ScanReport) []model.Cluster {
	stageStart := time.Now()
	defer p.observeStage("cluster", stageStart)

	idx := similarity.NewPreparedIndex(units, prepared)

	changed := map[string]bool{}
	for _, f := range req.ChangedFiles {
		changed[f] = true
	}
	allChanged := true
	changedIDs := map[string]bool{}
	for _, u := range units {
		if changed[u.FilePath] {
			changedIDs[u.ID] = true
		} else {
			allChanged = false
		}
	}

	// An incremental scan whose changed set spans every scanned file is a
	// full scan in disguise; clustering it exhaustively keeps its report
	// identical to the full scan's.
	if req.Kind == model.ScanFull || prior == nil || allChanged {
		return similarity.Cluster(idx, idx.Candidates(), p.simTh)
	}

	recomputed := similarity.Cluster(idx, idx.IncrementalCandidates(changedIDs), p.simTh)
	return mergeClusters(prior.Clusters, recomputed, changedIDs)
}

// mergeClusters keeps prior clusters untouched by the changed set and
// replaces any cluster touching a changed Unit with the freshly computed
// ones, so incremental scans reuse prior clusters for Units outside the
// changed set.
func mergeClusters(prior []model.Cluster, recomputed []model.Cluster, changedIDs map[string]bool) []model.Cluster {
	var kept []model.Cluster
	for _, c := range prior {
		touched := false
		for _, m := range c.Members {
			if changedIDs[m] {
				touched = true
				break
			}
		}
		if !touched {
			kept = append(kept, c)
		}
	}
	kept = append(kept, recomputed...)
	sort.Slice(kept, func(i, j int) bool {
		if len(kept[i].Members) == 0 || len(kept[j].Members) == 0 {
			return len(kept[i].Members) > len(kept[j].Members)
		}
		return kept[i].Members[0] < kept[j].Members[0]
	})
	return kept
}

// stageRules evaluates the rule set per file so FileContext's magic-string
// aggregation stays file-scoped.
func (p *Pipeline) stageRules(units []model.Unit, clusters []model.Cluster) []model.Finding {
	stageStart := time.Now()
	defer p.observeStage("rules", stageStart)

	byFile := map[string][]model.Unit{}
	for _, u := range units {
		byFile[u.FilePath] = append(byFile[u.FilePath], u)
	}

	var findings []model.Finding
	for _, unitsInFile := range byFile {
		fc := rules.NewFileContext(unitsInFile)
		fc.SetClusterMembers(clusters)
		for _, u := range unitsInFile {
			findings = append(findings, rules.Evaluate(p.ruleSet, u, fc)...)
		}
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].UnitID != findings[j].UnitID {
			return findings[i].UnitID < findings[j].UnitID
		}
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].RuleID < findings[j].RuleID
	})
	return findings
}

// stageScore derives every UnitScores entry.
func (p *Pipeline) stageScore(units []model.Unit, evidences map[string]model.Evidence, clusters []model.Cluster) map[string]model.UnitScores {
	stageStart := time.Now()
	defer p.observeStage("score", stageStart)

	clusterOf := map[string]string{}
	for _, c := range clusters {
		for _, m := range c.Members {
			clusterOf[m] = c.ID
		}
	}

	scores := make(map[string]model.UnitScores, len(units))
	for _, u := range units {
		ev := evidences[u.ID]
		s := scorer.ComputeUnitScores(u, ev, p.weights, p.thresholds)
		s.RedundancyCluster = clusterOf[u.ID]
		scores[u.ID] = s
	}
	return scores
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// shadowMapKey identifies the full per-Unit shadow map from the last
// completed scan of a repository. The ScanReport itself only carries the
// top-five hotspots, not every Unit's shadow status, so the runway
// formula's H term is tracked separately across scans here.
func shadowMapKey(repoRoot string) string {
	return cache.Key(repoRoot, "prior-shadow-map")
}

// runwayInput derives scorer.RunwayInput from the full shadow map left by
// the previous scan of this repository, if any.
func (p *Pipeline) runwayInput(repoRoot string, prior *model.ScanReport) scorer.RunwayInput {
	if prior == nil {
		return scorer.RunwayInput{HasPriorScan: false}
	}
	var priorShadow map[string]bool
	hit, err := p.store.Get(shadowMapKey(repoRoot), &priorShadow)
	if err != nil || !hit {
		return scorer.RunwayInput{HasPriorScan: false}
	}
	return scorer.RunwayInput{HasPriorScan: true, PriorShadow: priorShadow}
}

// saveShadowMap persists this scan's per-Unit shadow status so the next
// scan's runway calculation can see the full H term, not just the
// hotspot subset.
func (p *Pipeline) saveShadowMap(repoRoot string, scores map[string]model.UnitScores) {
	shadow := make(map[string]bool, len(scores))
	for id, s := range scores {
		shadow[id] = s.Shadow
	}
	if err := p.store.Put(shadowMapKey(repoRoot), shadow, cache.KindUnitFeatures.TTL(true)); err != nil {
		p.logger.Warn("pipeline.shadow_map.save.error", "err", err)
	}
}
