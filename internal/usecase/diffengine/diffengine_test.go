package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffIdenticalShortCircuits(t *testing.T) {
	r := Diff("hello world", "hello world")
	assert.Equal(t, 0, r.DiffSize)
	assert.Equal(t, "", r.DiffText)
	assert.Equal(t, 0, r.Added)
	assert.Equal(t, 0, r.Removed)
}

func TestDiffAddedLine(t *testing.T) {
	r := Diff("line one", "line one\nline two")
	assert.Equal(t, 1, r.Added)
	assert.Equal(t, 0, r.Removed)
	assert.Equal(t, 1, r.DiffSize)
	assert.Contains(t, r.DiffText, "+ line two")
}

func TestDiffRemovedLine(t *testing.T) {
	r := Diff("line one\nline two", "line one")
	assert.Equal(t, 0, r.Added)
	assert.Equal(t, 1, r.Removed)
	assert.Contains(t, r.DiffText, "- line two")
}

func TestDiffMixedChanges(t *testing.T) {
	r := Diff("a\nb\nc", "a\nx\nc")
	assert.Equal(t, 1, r.Added)
	assert.Equal(t, 1, r.Removed)
	assert.Equal(t, 2, r.DiffSize)
	assert.Contains(t, r.Summary, "added")
	assert.Contains(t, r.Summary, "removed")
}

func TestDiffEmptyToNonEmpty(t *testing.T) {
	r := Diff("", "new content")
	assert.Equal(t, 1, r.Added)
	assert.Equal(t, 0, r.Removed)
}
