// Package orchestrator implements the check orchestrator (C8): the full
// per-target pipeline from a single fetch through to a persisted change
// record. It wires together the content pipeline, the diff engine, the
// filter evaluator, the agent bridge, and the notification dispatcher in
// the fixed order the engine's design settles on; every external
// dependency is a narrow local interface so the pipeline can be exercised
// with fakes instead of the real infrastructure packages.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/domain/store"
	"sentrywatch/internal/infra/fetcher"
	"sentrywatch/internal/observability/metrics"
	"sentrywatch/internal/usecase/agent"
	"sentrywatch/internal/usecase/diffengine"
	"sentrywatch/internal/usecase/filter"
	"sentrywatch/internal/usecase/pipeline"
)

// DefaultSnapshotKeepMax and DefaultSnapshotKeepMin are the retention
// defaults applied after every successful fetch: keep the newest 50
// snapshots per target, never fewer than 5.
const (
	DefaultSnapshotKeepMax = 50
	DefaultSnapshotKeepMin = 5
)

// Fetcher is the subset of fetcher.Registry the orchestrator depends on.
type Fetcher interface {
	Fetch(ctx context.Context, target *entity.Target) (fetcher.Result, error)
}

// AgentInvoker is the subset of agent.Bridge the orchestrator depends on.
type AgentInvoker interface {
	Invoke(ctx context.Context, targetName string, agentCtx agent.Context) (*entity.AgentResponse, error)
}

// Dispatcher is the subset of notify.Dispatcher the orchestrator depends
// on.
type Dispatcher interface {
	DispatchChange(ctx context.Context, target *entity.Target, change *entity.Change, oldText, newText string, now time.Time) (suppressed bool, err error)
}

// Clock abstracts time.Now so tests can pin fetched_at/detected_at instead
// of racing the wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config controls the orchestrator's retention policy.
type Config struct {
	SnapshotKeepMax int
	SnapshotKeepMin int
}

// DefaultConfig returns the spec's stated retention defaults.
func DefaultConfig() Config {
	return Config{SnapshotKeepMax: DefaultSnapshotKeepMax, SnapshotKeepMin: DefaultSnapshotKeepMin}
}

// Orchestrator runs one target's check end to end. It holds no per-target
// state between calls; the daemon's scheduler is responsible for
// sequencing calls across targets and ticks.
type Orchestrator struct {
	store      store.Store
	fetchers   Fetcher
	agent      AgentInvoker
	dispatcher Dispatcher
	profile    *entity.InterestProfile
	clock      Clock
	cfg        Config
}

// New builds an Orchestrator. agentBridge and dispatcher may be nil only
// if every target it is ever given has Agent.Enabled=false / no
// notification target configured respectively; in the daemon these are
// always wired.
func New(st store.Store, fetchers Fetcher, agentBridge AgentInvoker, dispatcher Dispatcher, profile *entity.InterestProfile, cfg Config) *Orchestrator {
	if cfg.SnapshotKeepMax == 0 {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		store:      st,
		fetchers:   fetchers,
		agent:      agentBridge,
		dispatcher: dispatcher,
		profile:    profile,
		clock:      systemClock{},
		cfg:        cfg,
	}
}

// WithClock overrides the orchestrator's clock, for deterministic tests.
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.clock = c
	return o
}

// CheckTarget runs one full check of target: fetch, extract/normalize/
// hash, safety-net retry, persist the new snapshot and prune old ones,
// diff against the prior snapshot, evaluate filters, optionally consult
// the agent bridge, optionally notify, and persist the resulting change.
// A returned error means a fetch, extract or store step failed; when only
// the change row fails to store, the new snapshot is already persisted and
// any notification already sent. Agent and notification failures are
// captured on the Change instead of aborting it.
func (o *Orchestrator) CheckTarget(ctx context.Context, target *entity.Target) error {
	start := time.Now()
	outcome := "error"
	defer func() { metrics.RecordCheck(target.ID, outcome, time.Since(start)) }()

	log := slog.With(slog.String("target_id", target.ID), slog.String("target_name", target.Name))

	fr, err := o.fetchers.Fetch(ctx, target)
	if err != nil {
		log.Warn("fetch failed", slog.String("error", err.Error()))
		metrics.RecordCheckError(target.ID, "fetch")
		return entity.NewCheckError(entity.KindFetch, target.Name, err)
	}

	normalized, err := o.extractWithSafetyNet(fr, target)
	if err != nil {
		log.Warn("extraction failed", slog.String("error", err.Error()))
		metrics.RecordCheckError(target.ID, "extract")
		return entity.NewCheckError(entity.KindExtract, target.Name, err)
	}
	hash := pipeline.Hash(normalized)

	prev, err := o.store.GetLatestSnapshot(ctx, target.ID)
	hasPrev := true
	switch {
	case errors.Is(err, entity.ErrNotFound):
		hasPrev = false
	case err != nil:
		metrics.RecordCheckError(target.ID, "store")
		return entity.NewCheckError(entity.KindStore, target.Name, err)
	}

	now := o.clock.Now()
	snap := &entity.Snapshot{
		ID:        uuid.New().String(),
		TargetID:  target.ID,
		FetchedAt: now,
		Text:      normalized,
		Hash:      hash,
	}
	if fr.HTML != "" {
		snap.RawPayload = []byte(fr.HTML)
	}
	if err := o.store.InsertSnapshot(ctx, snap); err != nil {
		metrics.RecordCheckError(target.ID, "store")
		return entity.NewCheckError(entity.KindStore, target.Name, err)
	}

	keepMax, keepMin := o.cfg.SnapshotKeepMax, o.cfg.SnapshotKeepMin
	if err := o.store.CleanupSnapshots(ctx, target.ID, keepMax, keepMin); err != nil {
		log.Warn("snapshot cleanup failed, continuing with the check", slog.String("error", err.Error()))
	}

	if !hasPrev {
		log.Info("first snapshot recorded, nothing to diff against")
		outcome = "unchanged"
		return nil
	}
	if prev.Hash == hash {
		log.Info("no change detected")
		outcome = "unchanged"
		return nil
	}

	if err := o.recordChange(ctx, target, prev, snap, now, log); err != nil {
		metrics.RecordCheckError(target.ID, "store")
		return err
	}
	outcome = "changed"
	return nil
}

// extractWithSafetyNet runs a target's configured strategy and, when it
// comes back too short (or fails outright) and the strategy is not
// already full-body, retries with full-body extraction and keeps whichever
// normalized candidate is longer. This is the orchestrator's job rather
// than the content pipeline's: the pipeline only knows one strategy at a
// time, and the fallback choice needs both candidates to compare.
func (o *Orchestrator) extractWithSafetyNet(fr fetcher.Result, target *entity.Target) (string, error) {
	pr := pipeline.FetchResult{FinalURL: fr.FinalURL, HTML: fr.HTML, Text: fr.Text}

	raw, primaryErr := pipeline.Extract(pr, target.Strategy)
	var normalized string
	if primaryErr == nil {
		normalized = pipeline.Normalize(raw, target.Normalize)
	}

	needsFallback := target.Strategy.Kind != entity.StrategyFullBody &&
		(primaryErr != nil || len(normalized) < pipeline.MinSafetyNetLength)
	if !needsFallback {
		if primaryErr != nil {
			return "", primaryErr
		}
		return normalized, nil
	}

	fbRaw, fbErr := pipeline.Extract(pr, entity.ExtractionStrategy{Kind: entity.StrategyFullBody})
	if fbErr != nil {
		if primaryErr != nil {
			return "", primaryErr
		}
		return normalized, nil
	}
	fbNormalized := pipeline.Normalize(fbRaw, target.Normalize)
	if primaryErr != nil || len(fbNormalized) > len(normalized) {
		return fbNormalized, nil
	}
	return normalized, nil
}

// recordChange builds, enriches, and persists the change between prev and
// snap. It is only reached once the two snapshots' hashes have already
// been confirmed to differ.
func (o *Orchestrator) recordChange(ctx context.Context, target *entity.Target, prev, snap *entity.Snapshot, now time.Time, log *slog.Logger) error {
	diffResult := diffengine.Diff(prev.Text, snap.Text)
	filterPassed := filter.Evaluate(target.Filters, filter.Input{
		Old:           prev.Text,
		New:           snap.Text,
		Diff:          diffResult,
		CaseSensitive: !target.Normalize.Lowercase,
	})

	change := &entity.Change{
		ID:           uuid.New().String(),
		TargetID:     target.ID,
		DetectedAt:   now,
		OldSnapshot:  prev.ID,
		NewSnapshot:  snap.ID,
		DiffText:     diffResult.DiffText,
		DiffSize:     diffResult.DiffSize,
		FilterPassed: filterPassed,
	}

	if filterPassed && target.Agent.Enabled && o.agent != nil {
		o.consultAgent(ctx, target, change, prev.Text, snap.Text, now, log)
	}

	if change.FilterPassed && o.dispatcher != nil {
		suppressed, dispatchErr := o.dispatcher.DispatchChange(ctx, target, change, prev.Text, snap.Text, now)
		if dispatchErr != nil {
			log.Warn("notification dispatch failed", slog.String("error", dispatchErr.Error()))
		} else if !suppressed {
			change.Notified = true
		}
	}

	if change.FilterPassed {
		metrics.RecordChangeDetected(target.ID, change.DiffSize)
	} else {
		metrics.RecordChangeFiltered(target.ID)
	}

	if err := o.store.InsertChange(ctx, change); err != nil {
		return entity.NewCheckError(entity.KindStore, target.Name, err)
	}
	log.Info("change recorded",
		slog.Bool("filter_passed", change.FilterPassed),
		slog.Bool("notified", change.Notified),
		slog.Int("diff_size", change.DiffSize))
	return nil
}

// consultAgent invokes the agent bridge for a filter-passed change,
// merges its verdict into per-target and global memory, and may demote
// change.FilterPassed to false when the agent decides the change is not
// worth surfacing. A bridge failure is recorded as change.AgentError and
// never demotes FilterPassed: the change still reaches notification, with
// the failure visible in the payload.
func (o *Orchestrator) consultAgent(ctx context.Context, target *entity.Target, change *entity.Change, oldText, newText string, now time.Time, log *slog.Logger) {
	memory, err := o.store.GetAgentMemory(ctx, target.ID)
	if err != nil {
		change.AgentError = err.Error()
		log.Warn("loading agent memory failed", slog.String("error", err.Error()))
		return
	}
	global, err := o.store.GetGlobalMemory(ctx)
	if err != nil {
		change.AgentError = err.Error()
		log.Warn("loading global memory failed", slog.String("error", err.Error()))
		return
	}

	agentCtx := agent.Context{
		OldText: oldText,
		NewText: newText,
		Diff:    change.DiffText,
		Memory:  memory,
		Intent:  target.Agent.Intent,
		Global:  global,
	}
	if target.Profile {
		agentCtx.Profile = o.profile
	}

	resp, err := o.agent.Invoke(ctx, target.Name, agentCtx)
	if err != nil {
		change.AgentError = err.Error()
		metrics.RecordAgentInvocation(target.ID, "failed")
		return
	}
	metrics.RecordAgentInvocation(target.ID, "success")

	change.Agent = resp
	if !resp.Notify {
		change.FilterPassed = false
	}

	agent.ApplyVerdict(memory, global, resp, target.Name, now)
	if err := o.store.UpdateAgentMemory(ctx, memory); err != nil {
		log.Warn("saving agent memory failed", slog.String("error", err.Error()))
	}
	if err := o.store.UpdateGlobalMemory(ctx, global); err != nil {
		log.Warn("saving global memory failed", slog.String("error", err.Error()))
	}
}
