// Package claims provides the default collaborator implementations used when
// the workflow engine runs standalone, without the rest of the claims
// platform wired in. Every operation is logged and acknowledged so workflows
// remain fully executable in development and tests; production deployments
// replace these with real platform clients.
package claims

import (
	"context"
	"log/slog"

	"github.com/claimflow/claimflow/pkg/protocol"
	"github.com/google/uuid"
)

// Client bundles one implementation per collaborator interface.
type Client struct {
	Notifications protocol.NotificationSender
	Tasks         protocol.TaskAssigner
	Statuses      protocol.StatusUpdater
	Documents     protocol.DocumentCreator
	Email         protocol.EmailSender
}

func NewClient(logger *slog.Logger) *Client {
	logger = logger.With("module", "claims")

	return &Client{
		Notifications: &notificationSender{logger: logger},
		Tasks:         &taskAssigner{logger: logger},
		Statuses:      &statusUpdater{logger: logger},
		Documents:     &documentCreator{logger: logger},
		Email:         &emailSender{logger: logger},
	}
}

type notificationSender struct {
	logger *slog.Logger
}

func (s *notificationSender) Send(ctx context.Context, notification protocol.Notification) error {
	s.logger.InfoContext(ctx, "Sending notification",
		"recipient", notification.Recipient,
		"title", notification.Title,
		"channel", notification.Channel,
	)

	return nil
}

type taskAssigner struct {
	logger *slog.Logger
}

func (a *taskAssigner) Assign(ctx context.Context, task protocol.Task) (string, error) {
	taskID := "task-" + uuid.New().String()

	a.logger.InfoContext(ctx, "Assigning task",
		"task_id", taskID,
		"assignee", task.Assignee,
		"title", task.Title,
		"claim_id", task.ClaimID,
	)

	return taskID, nil
}

type statusUpdater struct {
	logger *slog.Logger
}

func (u *statusUpdater) UpdateStatus(ctx context.Context, entityType, entityID, status string) error {
	u.logger.InfoContext(ctx, "Updating status",
		"entity_type", entityType,
		"entity_id", entityID,
		"status", status,
	)

	return nil
}

type documentCreator struct {
	logger *slog.Logger
}

func (c *documentCreator) Create(ctx context.Context, request protocol.DocumentRequest) (string, error) {
	documentID := "doc-" + uuid.New().String()

	c.logger.InfoContext(ctx, "Creating document",
		"document_id", documentID,
		"name", request.Name,
		"template_id", request.TemplateID,
	)

	return documentID, nil
}

type emailSender struct {
	logger *slog.Logger
}

func (s *emailSender) Send(ctx context.Context, email protocol.Email) error {
	s.logger.InfoContext(ctx, "Sending email",
		"to", email.To,
		"subject", email.Subject,
	)

	return nil
}
