package models

// Status is the stage a batch of emails currently occupies in the triage
// workflow. Stages progress in strict linear order:
// idle -> pending -> drafted -> awaiting -> idle.
type Status string

const (
	// StatusIdle means no batch is in flight; a new fetch cycle may start.
	StatusIdle Status = "idle"
	// StatusPending means newly fetched emails await classification.
	StatusPending Status = "pending"
	// StatusDrafted means classification produced drafts awaiting notification.
	StatusDrafted Status = "drafted"
	// StatusAwaiting means drafts were surfaced to a reviewer and the workflow
	// waits for an approval or rejection decision.
	StatusAwaiting Status = "awaiting"
)
