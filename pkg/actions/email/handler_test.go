package email_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/claimflow/claimflow/pkg/actions/email"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []protocol.Email
	err  error
}

func (s *fakeSender) Send(_ context.Context, email protocol.Email) error {
	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, email)

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func emailAction(config map[string]any) *models.WorkflowAction {
	return &models.WorkflowAction{ID: "mail", Type: models.ActionTypeSendEmail, Config: config}
}

func TestExecute_SendsEmail(t *testing.T) {
	sender := &fakeSender{}
	handler := email.NewHandler(sender)

	result, err := handler.Execute(context.Background(), emailAction(map[string]any{
		"to":      []any{"adjuster@example.com", "lead@example.com"},
		"cc":      "audit@example.com",
		"subject": "Claim approved",
		"body":    "Claim claim-9 was approved.",
	}), &models.ExecutionContext{}, discardLogger())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, []string{"adjuster@example.com", "lead@example.com"}, sent.To)
	assert.Equal(t, []string{"audit@example.com"}, sent.CC)
	assert.Equal(t, "Claim approved", sent.Subject)

	out := result.(map[string]any)
	assert.Equal(t, true, out["sent"])
	assert.Equal(t, 2, out["recipients"])
}

func TestExecute_SingleRecipientString(t *testing.T) {
	sender := &fakeSender{}
	handler := email.NewHandler(sender)

	_, err := handler.Execute(context.Background(), emailAction(map[string]any{
		"to":      "adjuster@example.com",
		"subject": "Hello",
	}), &models.ExecutionContext{}, discardLogger())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"adjuster@example.com"}, sender.sent[0].To)
}

func TestExecute_RequiresRecipient(t *testing.T) {
	handler := email.NewHandler(&fakeSender{})

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing to", map[string]any{"subject": "Hello"}},
		{"empty string", map[string]any{"to": "", "subject": "Hello"}},
		{"empty list", map[string]any{"to": []any{}, "subject": "Hello"}},
		{"non-string members", map[string]any{"to": []any{42}, "subject": "Hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), emailAction(tt.config), &models.ExecutionContext{}, discardLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "recipient")
		})
	}
}

func TestExecute_SenderFailurePropagates(t *testing.T) {
	handler := email.NewHandler(&fakeSender{err: errors.New("smtp unavailable")})

	_, err := handler.Execute(context.Background(), emailAction(map[string]any{
		"to":      "adjuster@example.com",
		"subject": "Hello",
	}), &models.ExecutionContext{}, discardLogger())
	assert.EqualError(t, err, "smtp unavailable")
}

func TestExecute_DryRunSuppressesSend(t *testing.T) {
	sender := &fakeSender{}
	handler := email.NewHandler(sender)

	result, err := handler.Execute(context.Background(), emailAction(map[string]any{
		"to":      "adjuster@example.com",
		"subject": "Hello",
	}), &models.ExecutionContext{DryRun: true}, discardLogger())
	require.NoError(t, err)

	assert.Empty(t, sender.sent)
	assert.Equal(t, true, result.(map[string]any)["dry_run"])
}
