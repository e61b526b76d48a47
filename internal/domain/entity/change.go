package entity

import "time"

// AgentResponse is the agent bridge's parsed structured verdict on a
// change. It is absent from a Change when the agent was not consulted, or
// when it failed (in which case AgentError on the Change carries the
// reason instead).
type AgentResponse struct {
	Notify           bool
	Title            string
	Bullets          []string
	Summary          string
	MemoryUpdate     *MemoryUpdate
	GlobalObservation string
}

// Change is the detected transition between two successive snapshots of the
// same target.
type Change struct {
	ID           string
	TargetID     string
	DetectedAt   time.Time
	OldSnapshot  string
	NewSnapshot  string
	DiffText     string
	DiffSize     int
	FilterPassed bool
	Agent        *AgentResponse
	AgentError   string
	Notified     bool
}
