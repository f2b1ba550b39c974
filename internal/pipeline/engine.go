package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/leadradar/internal/ai"
	"github.com/amishk599/leadradar/internal/model"
	"github.com/amishk599/leadradar/internal/tracker"
)

// Mode selects how often accepted leads are written.
type Mode string

const (
	// ModeBatch snapshots priors once per run and writes every accepted lead at the end.
	ModeBatch Mode = "batch"
	// ModeStream reads priors per lead and writes each accepted lead immediately.
	ModeStream Mode = "stream"
)

// state is a step of the per-signal machine. Transitions only move forward.
type state int

const (
	stateRelevance state = iota
	stateNovelty
	stateStore
	stateDone
)

func (s state) String() string {
	switch s {
	case stateRelevance:
		return "relevance"
	case stateNovelty:
		return "novelty"
	case stateStore:
		return "store"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options holds the optional collaborators and limits of an Engine.
type Options struct {
	Mode            Mode
	Filter          model.SignalFilter // nil passes every signal
	Notifier        model.Notifier     // nil disables notifications
	FetchTimeout    time.Duration
	ClassifyTimeout time.Duration
}

// Engine runs one role: fetch → filter → relevance → novelty → store.
type Engine struct {
	role         model.RoleConfig
	source       model.SignalSource
	store        model.HistoryStore
	tracker      *tracker.LeadTracker
	relevance    *RelevanceStage
	novelty      *NoveltyStage
	filter       model.SignalFilter
	notifier     model.Notifier
	mode         Mode
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewEngine wires an engine for role. Prompt templates are parsed here so a
// bad template fails at startup rather than per signal.
func NewEngine(
	role model.RoleConfig,
	source model.SignalSource,
	provider ai.LLMProvider,
	store model.HistoryStore,
	opts Options,
	logger *slog.Logger,
) (*Engine, error) {
	relevance, err := NewRelevanceStage(provider, role, opts.ClassifyTimeout)
	if err != nil {
		return nil, err
	}
	novelty, err := NewNoveltyStage(provider, role, opts.ClassifyTimeout)
	if err != nil {
		return nil, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeBatch
	}
	if mode != ModeBatch && mode != ModeStream {
		return nil, fmt.Errorf("unknown pipeline mode %q", mode)
	}
	return &Engine{
		role:         role,
		source:       source,
		store:        store,
		tracker:      tracker.NewLeadTracker(store, logger),
		relevance:    relevance,
		novelty:      novelty,
		filter:       opts.Filter,
		notifier:     opts.Notifier,
		mode:         mode,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
	}, nil
}

// Role returns the role configuration this engine runs.
func (e *Engine) Role() model.RoleConfig {
	return e.role
}

// priorLookup returns a company's recorded history.
type priorLookup func(ctx context.Context, company string) ([]model.SignalRecord, error)

type runCounts struct {
	fetched, filtered, relevant, novel, saved int
}

// Run processes one fetch worth of signals and returns the leads that were
// written to the store. Per-signal failures are logged and skipped; only a
// failed fetch or priors snapshot is returned as an error.
func (e *Engine) Run(ctx context.Context) ([]model.Lead, error) {
	logger := e.logger.With("run_id", uuid.NewString(), "role", e.role.Role)

	signals, err := e.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching signals for %s: %w", e.role.Role, err)
	}
	if len(signals) > model.MaxSignalsPerFetch {
		signals = signals[:model.MaxSignalsPerFetch]
	}

	var lookup priorLookup
	switch e.mode {
	case ModeBatch:
		snapshot, err := e.store.Priors(ctx, e.role.CollectionName)
		if err != nil {
			return nil, fmt.Errorf("loading priors for %s: %w", e.role.Role, err)
		}
		lookup = func(_ context.Context, company string) ([]model.SignalRecord, error) {
			return snapshot[company], nil
		}
	case ModeStream:
		lookup = func(ctx context.Context, company string) ([]model.SignalRecord, error) {
			return e.store.Signals(ctx, e.role.CollectionName, company)
		}
	}

	counts := runCounts{fetched: len(signals)}
	var pending, saved []model.Lead
	for _, sig := range signals {
		if ctx.Err() != nil {
			break
		}
		if e.filter != nil && !e.filter.Match(sig) {
			counts.filtered++
			continue
		}
		lead, ok := e.process(ctx, sig, lookup, &counts, logger)
		if !ok {
			continue
		}
		if e.mode == ModeStream {
			saved = append(saved, e.persist(ctx, []model.Lead{lead}, logger)...)
		} else {
			pending = append(pending, lead)
		}
	}
	if e.mode == ModeBatch && len(pending) > 0 {
		saved = e.persist(ctx, pending, logger)
	}
	counts.saved = len(saved)

	if len(saved) > 0 && e.notifier != nil {
		if err := e.notifier.Notify(saved); err != nil {
			logger.Warn("notifying saved leads", "error", err)
		}
	}

	logger.Info("role run complete",
		"fetched", counts.fetched,
		"filtered", counts.filtered,
		"relevant", counts.relevant,
		"novel", counts.novel,
		"saved", counts.saved,
	)
	return saved, nil
}

// process drives one signal through the state machine and reports whether it
// reached the store state.
func (e *Engine) process(ctx context.Context, sig model.Signal, lookup priorLookup, counts *runCounts, logger *slog.Logger) (model.Lead, bool) {
	var (
		lead   model.Lead
		stored bool
	)
	st := stateRelevance
	for st != stateDone {
		switch st {
		case stateRelevance:
			l, err := e.relevance.Evaluate(ctx, sig)
			if err != nil {
				logger.Debug("signal discarded", "state", st, "source_url", sig.SourceURL, "error", err)
				st = stateDone
				continue
			}
			counts.relevant++
			lead = l
			st = stateNovelty

		case stateNovelty:
			priors, err := lookup(ctx, lead.Company)
			if err == nil {
				err = e.novelty.Evaluate(ctx, lead, sig.Content, priors)
			}
			if err != nil {
				logger.Debug("lead discarded", "state", st, "company", lead.Company, "error", err)
				st = stateDone
				continue
			}
			counts.novel++
			st = stateStore

		case stateStore:
			stored = true
			st = stateDone
		}
	}
	return lead, stored
}

func (e *Engine) persist(ctx context.Context, leads []model.Lead, logger *slog.Logger) []model.Lead {
	saved, err := e.tracker.StoreNewLeads(ctx, e.role.CollectionName, leads)
	if err != nil {
		logger.Warn("storing leads", "error", err)
	}
	return saved
}

func (e *Engine) fetch(ctx context.Context) ([]model.Signal, error) {
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}
	return e.source.FetchSignals(ctx, e.role.SearchQuery)
}
