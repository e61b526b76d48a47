package metrics

// RecordChangeDetected records a change that passed the filter chain and its diff size.
func RecordChangeDetected(targetID string, diffSize int) {
	ChangesDetectedTotal.WithLabelValues(targetID).Inc()
	DiffSize.WithLabelValues(targetID).Observe(float64(diffSize))
}

// RecordChangeFiltered records a change that was suppressed by the filter chain.
func RecordChangeFiltered(targetID string) {
	ChangesFilteredTotal.WithLabelValues(targetID).Inc()
}

// RecordCheckError records a check failure at a given pipeline stage.
func RecordCheckError(targetID, stage string) {
	CheckErrorsTotal.WithLabelValues(targetID, stage).Inc()
}

// RecordAgentInvocation records the outcome of one reasoning-agent call.
func RecordAgentInvocation(targetID, outcome string) {
	AgentInvocationsTotal.WithLabelValues(targetID, outcome).Inc()
}

// UpdateTargetsTotal updates the gauge of configured targets split by enabled state.
func UpdateTargetsTotal(enabledCount, disabledCount int) {
	TargetsTotal.WithLabelValues("true").Set(float64(enabledCount))
	TargetsTotal.WithLabelValues("false").Set(float64(disabledCount))
}

// UpdateSnapshotsStored updates the gauge of snapshots retained for a target.
func UpdateSnapshotsStored(targetID string, count int) {
	SnapshotsStoredTotal.WithLabelValues(targetID).Set(float64(count))
}
