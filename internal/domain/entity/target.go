package entity

import (
	"fmt"
	"time"
)

// FetchEngine selects which external fetcher implementation services a
// target's source locator.
type FetchEngine string

const (
	EngineHTTP            FetchEngine = "http"
	EngineHeadlessBrowser FetchEngine = "headless-browser"
	EngineRSS             FetchEngine = "rss"
	EngineShell           FetchEngine = "shell"
)

func (e FetchEngine) Valid() bool {
	switch e {
	case EngineHTTP, EngineHeadlessBrowser, EngineRSS, EngineShell:
		return true
	default:
		return false
	}
}

// StrategyKind is the closed set of extraction strategies the content
// pipeline supports.
type StrategyKind string

const (
	StrategyAuto           StrategyKind = "auto"
	StrategyFullBody       StrategyKind = "full-body"
	StrategySelector       StrategyKind = "selector"
	StrategyStructuredData StrategyKind = "structured-data"
	StrategyRSSItems       StrategyKind = "rss-items"
)

// ExtractionStrategy carries the strategy kind plus the parameters it needs:
// Selector carries the CSS-like selector for StrategySelector, Types
// optionally narrows StrategyStructuredData to a set of JSON-LD @type
// values.
type ExtractionStrategy struct {
	Kind     StrategyKind
	Selector string
	Types    []string
}

func (s ExtractionStrategy) Valid() bool {
	switch s.Kind {
	case StrategyAuto, StrategyFullBody, StrategyStructuredData, StrategyRSSItems:
		return true
	case StrategySelector:
		return s.Selector != ""
	default:
		return false
	}
}

// NormalizationOptions is the fixed set of text-normalization toggles
// applied, in order, after the extraction strategy returns raw text:
// Unicode NFC, CRLF->LF, tab->space, and whitespace-run collapsing always
// run; Lowercase and BoilerplateStrip are opt-in.
type NormalizationOptions struct {
	Lowercase        bool
	BoilerplateStrip []string
}

// AgentConfig controls whether and how the agent bridge is consulted for a
// target whose change passed the filter evaluator.
type AgentConfig struct {
	Enabled        bool
	Intent         string
	PromptTemplate string
}

// FilterPredicateKind enumerates the closed set of predicate kinds the
// filter evaluator understands.
type FilterPredicateKind string

const (
	PredicateMinDiffSize         FilterPredicateKind = "min_diff_size"
	PredicateContainsAny         FilterPredicateKind = "contains_any"
	PredicateContainsAll         FilterPredicateKind = "contains_all"
	PredicateExcludes            FilterPredicateKind = "excludes"
	PredicateRegexMatches        FilterPredicateKind = "regex_matches"
	PredicateChangedLinesBetween FilterPredicateKind = "changed_lines_between"
)

// RegexTarget selects which text a regex_matches predicate is evaluated
// against.
type RegexTarget string

const (
	RegexTargetNew  RegexTarget = "new"
	RegexTargetDiff RegexTarget = "diff"
)

// FilterPredicate is one entry in a target's ordered filter list. Only the
// fields relevant to Kind are populated.
type FilterPredicate struct {
	Kind FilterPredicateKind

	MinDiffSize int
	Keywords    []string
	Pattern     string
	On          RegexTarget
	Lo, Hi      int
}

// Target is one monitored source and its full configuration.
type Target struct {
	ID          string
	Name        string
	Locator     string
	Engine      FetchEngine
	Strategy    ExtractionStrategy
	Normalize   NormalizationOptions
	Headers     map[string]string
	IntervalSec int
	Enabled     bool
	NotifyTo    *NotificationTarget
	Agent       AgentConfig
	Profile     bool
	Tags        []string
	CreatedAt   time.Time
	Filters     []FilterPredicate
}

const minIntervalSeconds = 10

// Validate checks the invariants from the data model: interval floor,
// rss-items implying the rss engine, and a well-formed strategy/engine
// combination. existingNames is the set of names already in use by other
// targets (enabled or disabled), used to enforce name uniqueness.
func (t *Target) Validate(existingNames map[string]bool) error {
	if t.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if existingNames[t.Name] {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("%q is already in use", t.Name)}
	}
	if t.IntervalSec < minIntervalSeconds {
		return &ValidationError{Field: "interval_sec", Message: fmt.Sprintf("must be >= %ds", minIntervalSeconds)}
	}
	if !t.Engine.Valid() {
		return &ValidationError{Field: "engine", Message: fmt.Sprintf("unknown engine %q", t.Engine)}
	}
	if !t.Strategy.Valid() {
		return &ValidationError{Field: "strategy", Message: fmt.Sprintf("invalid strategy %q", t.Strategy.Kind)}
	}
	if t.Strategy.Kind == StrategyRSSItems && t.Engine != EngineRSS {
		return &ValidationError{Field: "strategy", Message: "rss-items requires engine=rss"}
	}
	if t.Locator == "" {
		return &ValidationError{Field: "locator", Message: "must not be empty"}
	}
	return nil
}

// RateLimited reports whether this target's fetches are subject to the
// per-domain rate limiter. The shell engine is exempt because its locator
// is an opaque command, not a URL.
func (t *Target) RateLimited() bool {
	return t.Engine != EngineShell
}
