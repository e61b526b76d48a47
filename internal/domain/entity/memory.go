package entity

import (
	"sort"
	"time"
)

const (
	maxMemoryCounters   = 64
	maxMemoryLastValues = 64
	maxMemoryNotes      = 20
	maxNoteLength       = 240

	maxGlobalTopics          = 128
	globalObservationConfidence = 0.7
	globalWeightDecay            = 0.95
)

// MemoryUpdate is the agent-originated delta merged into a target's memory
// after truncation to the fixed limits.
type MemoryUpdate struct {
	Counters   map[string]int
	LastValues map[string]any
	Notes      []string
}

// AgentMemory is the per-target memory the agent bridge reads and writes
// across invocations: bounded counters, bounded last-seen scalars, and a
// bounded ordered list of free-text notes.
type AgentMemory struct {
	TargetID   string
	Counters   map[string]int
	LastValues map[string]any
	Notes      []string
}

// NewAgentMemory returns an empty memory record for targetID.
func NewAgentMemory(targetID string) *AgentMemory {
	return &AgentMemory{
		TargetID:   targetID,
		Counters:   make(map[string]int),
		LastValues: make(map[string]any),
		Notes:      nil,
	}
}

// Merge applies upd on top of m, then truncates to the fixed limits:
// counters and last_values capped at 64 entries each (arbitrary keys are
// dropped when the merge would exceed the cap), notes capped at 20 items of
// at most 240 characters each, oldest dropped first.
func (m *AgentMemory) Merge(upd *MemoryUpdate) {
	if upd == nil {
		return
	}
	if m.Counters == nil {
		m.Counters = make(map[string]int)
	}
	if m.LastValues == nil {
		m.LastValues = make(map[string]any)
	}

	for k, v := range upd.Counters {
		m.Counters[k] = v
	}
	for k, v := range upd.LastValues {
		m.LastValues[k] = v
	}
	m.Notes = append(m.Notes, upd.Notes...)

	truncateIntMap(m.Counters, maxMemoryCounters)
	truncateAnyMap(m.LastValues, maxMemoryLastValues)
	m.Notes = truncateNotes(m.Notes, maxMemoryNotes, maxNoteLength)
}

// truncateIntMap drops arbitrary entries (map iteration order, which Go
// randomizes) once the map exceeds limit. Deterministic ordering is not
// required by the contract, only the bound.
func truncateIntMap(m map[string]int, limit int) {
	for len(m) > limit {
		for k := range m {
			delete(m, k)
			break
		}
	}
}

func truncateAnyMap(m map[string]any, limit int) {
	for len(m) > limit {
		for k := range m {
			delete(m, k)
			break
		}
	}
}

func truncateNotes(notes []string, maxItems, maxLen int) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		if len(n) > maxLen {
			n = n[:maxLen]
		}
		out = append(out, n)
	}
	if len(out) > maxItems {
		out = out[len(out)-maxItems:]
	}
	return out
}

// GlobalObservation is one cross-target entry in global memory.
type GlobalObservation struct {
	Text       string
	Source     string
	Confidence float64
	At         time.Time
}

// GlobalMemory is the cross-target memory record: a running list of
// observations and a topic -> interest-weight map that decays on every
// write.
type GlobalMemory struct {
	Observations []GlobalObservation
	Weights      map[string]float64
}

// NewGlobalMemory returns an empty global memory record.
func NewGlobalMemory() *GlobalMemory {
	return &GlobalMemory{Weights: make(map[string]float64)}
}

// AppendObservation records an agent-originated global observation at
// confidence 0.7, then applies a decay pass (every existing topic weight
// multiplied by 0.95) and a truncation pass (keep the top 128 topics by
// weight). topicsTouched are the topic keys this observation should bump;
// callers that have no topic extraction may pass nil.
func (g *GlobalMemory) AppendObservation(text, source string, at time.Time, topicsTouched map[string]float64) {
	g.Observations = append(g.Observations, GlobalObservation{
		Text:       text,
		Source:     source,
		Confidence: globalObservationConfidence,
		At:         at,
	})

	if g.Weights == nil {
		g.Weights = make(map[string]float64)
	}
	for topic := range g.Weights {
		g.Weights[topic] *= globalWeightDecay
	}
	for topic, bump := range topicsTouched {
		w := g.Weights[topic] + bump
		if w > 1.0 {
			w = 1.0
		}
		g.Weights[topic] = w
	}

	g.truncateWeights()
}

// truncateWeights keeps only the top maxGlobalTopics entries by weight.
func (g *GlobalMemory) truncateWeights() {
	if len(g.Weights) <= maxGlobalTopics {
		return
	}
	type kv struct {
		k string
		v float64
	}
	all := make([]kv, 0, len(g.Weights))
	for k, v := range g.Weights {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v > all[j].v })
	kept := make(map[string]float64, maxGlobalTopics)
	for _, e := range all[:maxGlobalTopics] {
		kept[e.k] = e.v
	}
	g.Weights = kept
}
