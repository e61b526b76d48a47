package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/usecase/diffengine"
)

func TestEvaluateEmptyListPasses(t *testing.T) {
	assert.True(t, Evaluate(nil, Input{}))
}

func TestMinDiffSize(t *testing.T) {
	in := Input{Diff: diffengine.Result{DiffSize: 3}}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateMinDiffSize, MinDiffSize: 5}}
	assert.False(t, Evaluate(preds, in))

	preds[0].MinDiffSize = 2
	assert.True(t, Evaluate(preds, in))
}

func TestContainsAny(t *testing.T) {
	in := Input{New: "the price dropped to $9"}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateContainsAny, Keywords: []string{"sale", "price"}}}
	assert.True(t, Evaluate(preds, in))

	preds[0].Keywords = []string{"sale", "discount"}
	assert.False(t, Evaluate(preds, in))
}

func TestContainsAll(t *testing.T) {
	in := Input{New: "new version released today"}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateContainsAll, Keywords: []string{"new", "version"}}}
	assert.True(t, Evaluate(preds, in))

	preds[0].Keywords = []string{"new", "bugfix"}
	assert.False(t, Evaluate(preds, in))
}

func TestExcludes(t *testing.T) {
	in := Input{New: "routine maintenance notice"}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateExcludes, Keywords: []string{"maintenance"}}}
	assert.False(t, Evaluate(preds, in))

	preds[0].Keywords = []string{"outage"}
	assert.True(t, Evaluate(preds, in))
}

func TestRegexMatchesOnNew(t *testing.T) {
	in := Input{New: "order #12345 shipped"}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateRegexMatches, Pattern: `order #\d+`, On: entity.RegexTargetNew}}
	assert.True(t, Evaluate(preds, in))
}

func TestRegexMatchesOnDiff(t *testing.T) {
	in := Input{Diff: diffengine.Result{DiffText: "+ order #12345 shipped\n"}}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateRegexMatches, Pattern: `order #\d+`, On: entity.RegexTargetDiff}}
	assert.True(t, Evaluate(preds, in))
}

func TestRegexInvalidPatternTreatedAsFalse(t *testing.T) {
	in := Input{New: "anything"}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateRegexMatches, Pattern: `[`, On: entity.RegexTargetNew}}
	assert.False(t, Evaluate(preds, in))
}

func TestChangedLinesBetween(t *testing.T) {
	in := Input{Diff: diffengine.Result{DiffSize: 4}}
	preds := []entity.FilterPredicate{{Kind: entity.PredicateChangedLinesBetween, Lo: 1, Hi: 5}}
	assert.True(t, Evaluate(preds, in))

	preds[0].Hi = 3
	assert.False(t, Evaluate(preds, in))
}

func TestEvaluateStrictAND(t *testing.T) {
	in := Input{New: "price drop", Diff: diffengine.Result{DiffSize: 1}}
	preds := []entity.FilterPredicate{
		{Kind: entity.PredicateMinDiffSize, MinDiffSize: 1},
		{Kind: entity.PredicateContainsAny, Keywords: []string{"nonexistent"}},
	}
	assert.False(t, Evaluate(preds, in))
}

func TestUnknownPredicateKindTreatedAsFalse(t *testing.T) {
	preds := []entity.FilterPredicate{{Kind: "not_a_real_kind"}}
	assert.False(t, Evaluate(preds, Input{}))
}
