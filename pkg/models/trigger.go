package models

// TriggerType identifies the event class that authorizes a workflow run.
type TriggerType string

const (
	TriggerTypeManual               TriggerType = "manual"
	TriggerTypeDocumentUpload       TriggerType = "document_upload"
	TriggerTypeDocumentStatusChange TriggerType = "document_status_change"
	TriggerTypeCaseStatusChange     TriggerType = "case_status_change"
	TriggerTypeDateTime             TriggerType = "date_time"
	TriggerTypeWebhook              TriggerType = "webhook"
	TriggerTypeAPI                  TriggerType = "api"
)

// WorkflowTrigger describes when a workflow fires. Conditions, when present,
// must all pass before the engine starts the action pipeline.
type WorkflowTrigger struct {
	Type       TriggerType          `json:"type"                 validate:"required"`
	Config     map[string]any       `json:"config,omitempty"`
	Conditions []*WorkflowCondition `json:"conditions,omitempty"`
}

// FiresWithoutActivation reports whether this trigger type may run a
// workflow that is not in active status. Manual and api triggers are
// operator-driven and bypass the active-status gate; everything else is an
// automatic trigger enforced by the front door.
func (t WorkflowTrigger) FiresWithoutActivation() bool {
	return t.Type == TriggerTypeManual || t.Type == TriggerTypeAPI
}
