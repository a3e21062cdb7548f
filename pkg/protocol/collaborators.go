package protocol

import (
	"context"

	"github.com/claimflow/claimflow/pkg/models"
)

// Notification is an in-app message delivered to a platform user.
type Notification struct {
	Recipient string         `json:"recipient"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Channel   string         `json:"channel,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NotificationSender delivers notifications. Implemented by the host
// application; the send_notification handler is a thin adapter over it.
type NotificationSender interface {
	Send(ctx context.Context, notification Notification) error
}

// Task is a unit of human work created by an assign_task action.
type Task struct {
	Assignee    string         `json:"assignee"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ClaimID     string         `json:"claim_id,omitempty"`
	DueDate     string         `json:"due_date,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TaskAssigner creates tasks and returns the created task id.
type TaskAssigner interface {
	Assign(ctx context.Context, task Task) (string, error)
}

// StatusUpdater transitions a domain entity (claim, document, case) to a new
// status.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, entityType, entityID, status string) error
}

// DocumentRequest describes a document to generate.
type DocumentRequest struct {
	Name       string         `json:"name"`
	TemplateID string         `json:"template_id,omitempty"`
	FolderID   string         `json:"folder_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// DocumentCreator generates documents and returns the created document id.
type DocumentCreator interface {
	Create(ctx context.Context, request DocumentRequest) (string, error)
}

// Email is an outbound email message.
type Email struct {
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// EmailSender delivers email through the host application's provider.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// WorkflowRunner starts a workflow execution. The engine implements it; the
// run_workflow handler consumes it so nested invocations do not import the
// engine package directly.
type WorkflowRunner interface {
	Run(ctx context.Context, workflowID string, triggerData map[string]any, triggeredBy string, depth int) (*models.WorkflowExecution, error)
}
