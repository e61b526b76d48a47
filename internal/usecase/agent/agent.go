// Package agent packages the Agent Context for one change, invokes the
// external reasoning subprocess through internal/infra/agentproc, and
// parses its strictly structured verdict back into the domain model.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sentrywatch/internal/domain/entity"
)

// maxContextChars bounds how much old/new/diff text is embedded in the
// serialized Agent Context, mirroring the teacher's 10,000-char safety
// truncation ahead of an LLM call.
const maxContextChars = 10000

// Runner is the subset of agentproc.Runner the bridge depends on.
type Runner interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Context is the Agent Context packaged for one change, per spec §4.6.
type Context struct {
	OldText string                  `json:"old_text"`
	NewText string                  `json:"new_text"`
	Diff    string                  `json:"diff_text"`
	Memory  *entity.AgentMemory     `json:"memory,omitempty"`
	Intent  string                  `json:"intent,omitempty"`
	Profile *entity.InterestProfile `json:"profile,omitempty"`
	Global  *entity.GlobalMemory    `json:"global_memory,omitempty"`
}

// rawMemoryUpdate mirrors the reasoner's memory_update object exactly;
// unknown scalar types land in LastValues only, never in a typed field.
type rawMemoryUpdate struct {
	Counters   map[string]int `json:"counters"`
	LastValues map[string]any `json:"last_values"`
	Notes      []string       `json:"notes"`
}

// rawVerdict mirrors the strict JSON schema the reasoner must emit.
type rawVerdict struct {
	Notify            *bool            `json:"notify"`
	Title             *string          `json:"title"`
	Bullets           []string         `json:"bullets"`
	Summary           *string          `json:"summary"`
	MemoryUpdate      *rawMemoryUpdate `json:"memory_update"`
	GlobalObservation *string          `json:"global_observation"`
}

// Bridge invokes the reasoning subprocess and validates its response.
type Bridge struct {
	runner       Runner
	systemPrompt string
}

// NewBridge builds a Bridge around runner using systemPrompt for every
// invocation.
func NewBridge(runner Runner, systemPrompt string) *Bridge {
	return &Bridge{runner: runner, systemPrompt: systemPrompt}
}

func truncate(s string) string {
	if len(s) <= maxContextChars {
		return s
	}
	return s[:maxContextChars] + "...(truncated)"
}

// Invoke packages agentCtx as the subprocess user prompt, runs the
// reasoner, and parses its verdict. Any subprocess failure, empty output,
// or schema violation is reported as a KindAgentFailed error — per spec
// §4.6 this must NOT demote filter_passed; that decision belongs to the
// caller.
func (b *Bridge) Invoke(ctx context.Context, targetName string, agentCtx Context) (*entity.AgentResponse, error) {
	agentCtx.OldText = truncate(agentCtx.OldText)
	agentCtx.NewText = truncate(agentCtx.NewText)
	agentCtx.Diff = truncate(agentCtx.Diff)

	userPrompt, err := json.Marshal(agentCtx)
	if err != nil {
		return nil, entity.NewCheckError(entity.KindAgentFailed, targetName, fmt.Errorf("marshal agent context: %w", err))
	}

	start := time.Now()
	out, err := b.runner.Invoke(ctx, b.systemPrompt, string(userPrompt))
	duration := time.Since(start)
	if err != nil {
		slog.Warn("agent invocation failed",
			slog.String("target_name", targetName),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, entity.NewCheckError(entity.KindAgentFailed, targetName, err)
	}

	var raw rawVerdict
	if jsonErr := json.Unmarshal([]byte(out), &raw); jsonErr != nil {
		slog.Warn("agent response failed to parse",
			slog.String("target_name", targetName),
			slog.String("raw_output", out))
		return nil, entity.NewCheckError(entity.KindAgentFailed, targetName, fmt.Errorf("parse agent response: %w", jsonErr))
	}
	if raw.Notify == nil {
		return nil, entity.NewCheckError(entity.KindAgentFailed, targetName, fmt.Errorf("agent response missing required field %q", "notify"))
	}

	resp := &entity.AgentResponse{
		Notify:  *raw.Notify,
		Bullets: raw.Bullets,
	}
	if raw.Title != nil {
		resp.Title = *raw.Title
	}
	if raw.Summary != nil {
		resp.Summary = *raw.Summary
	}
	if raw.GlobalObservation != nil {
		resp.GlobalObservation = *raw.GlobalObservation
	}
	if raw.MemoryUpdate != nil {
		resp.MemoryUpdate = &entity.MemoryUpdate{
			Counters:   raw.MemoryUpdate.Counters,
			LastValues: raw.MemoryUpdate.LastValues,
			Notes:      raw.MemoryUpdate.Notes,
		}
	}

	slog.Info("agent invocation succeeded",
		slog.String("target_name", targetName),
		slog.Duration("duration", duration),
		slog.Bool("notify", resp.Notify))

	return resp, nil
}

// ApplyVerdict merges a successful verdict's memory_update into memory and
// appends global_observation to global, per spec §4.6's merge/decay/
// truncation contract. Callers pass nil responses/memories defensively;
// ApplyVerdict is a no-op on a nil resp.
func ApplyVerdict(memory *entity.AgentMemory, global *entity.GlobalMemory, resp *entity.AgentResponse, targetName string, at time.Time) {
	if resp == nil {
		return
	}
	if memory != nil && resp.MemoryUpdate != nil {
		memory.Merge(resp.MemoryUpdate)
	}
	if global != nil && resp.GlobalObservation != "" {
		global.AppendObservation(resp.GlobalObservation, targetName, at, nil)
	}
}
