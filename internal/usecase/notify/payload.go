package notify

import (
	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/infra/notifier"
)

// BuildPayload renders the fixed notification payload fields for change
// against target, per spec §4.7. oldText/newText are the normalized
// snapshot contents the orchestrator already holds in memory; Change itself
// only carries snapshot ids, not their content. Agent fields are left empty
// when the change was never handed to the agent bridge.
func BuildPayload(target *entity.Target, change *entity.Change, oldText, newText string) notifier.Payload {
	payload := notifier.Payload{
		TargetID:   target.ID,
		TargetName: target.Name,
		SourceURL:  target.Locator,
		OldText:    oldText,
		NewText:    newText,
		DiffText:   change.DiffText,
		DiffSize:   change.DiffSize,
		DetectedAt: change.DetectedAt,
		AgentError: change.AgentError,
	}
	if change.Agent != nil {
		payload.AgentTitle = change.Agent.Title
		payload.AgentBullets = change.Agent.Bullets
		payload.AgentSummary = change.Agent.Summary
	}
	return payload
}
