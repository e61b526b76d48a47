// Package filter implements the filter evaluator (C3): a strict AND over a
// target's ordered list of predicates, applied to (old, new, diff).
package filter

import (
	"log/slog"
	"regexp"
	"strings"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/usecase/diffengine"
)

// Input is the triple every predicate is evaluated against.
type Input struct {
	Old  string
	New  string
	Diff diffengine.Result

	// CaseSensitive follows the target's normalization options: when the
	// target lowercases its text, keyword/regex comparisons already operate
	// on lowercased text, so this flag only affects literal keyword
	// comparisons supplied in their original case.
	CaseSensitive bool
}

// Evaluate runs every predicate in order and returns the strict AND. An
// empty predicate list evaluates to true. A regex that fails to compile or
// evaluate is logged and treated as false for that predicate (and thus for
// the whole AND).
func Evaluate(predicates []entity.FilterPredicate, in Input) bool {
	for _, p := range predicates {
		if !evalOne(p, in) {
			return false
		}
	}
	return true
}

func evalOne(p entity.FilterPredicate, in Input) bool {
	switch p.Kind {
	case entity.PredicateMinDiffSize:
		return in.Diff.DiffSize >= p.MinDiffSize
	case entity.PredicateContainsAny:
		return containsAny(in.New, p.Keywords, in.CaseSensitive)
	case entity.PredicateContainsAll:
		return containsAll(in.New, p.Keywords, in.CaseSensitive)
	case entity.PredicateExcludes:
		return !containsAny(in.New, p.Keywords, in.CaseSensitive)
	case entity.PredicateRegexMatches:
		return regexMatches(p, in)
	case entity.PredicateChangedLinesBetween:
		return in.Diff.DiffSize >= p.Lo && in.Diff.DiffSize <= p.Hi
	default:
		slog.Warn("unknown filter predicate kind, treating as false", slog.String("kind", string(p.Kind)))
		return false
	}
}

func containsAny(text string, keywords []string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, kw := range keywords {
		k := kw
		if !caseSensitive {
			k = strings.ToLower(k)
		}
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsAll(text string, keywords []string, caseSensitive bool) bool {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	for _, kw := range keywords {
		k := kw
		if !caseSensitive {
			k = strings.ToLower(k)
		}
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

func regexMatches(p entity.FilterPredicate, in Input) bool {
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		slog.Warn("invalid regex in filter predicate, treating as false",
			slog.String("pattern", p.Pattern), slog.Any("error", err))
		return false
	}

	var target string
	switch p.On {
	case entity.RegexTargetDiff:
		target = in.Diff.DiffText
	default:
		target = in.New
	}
	return re.MatchString(target)
}
