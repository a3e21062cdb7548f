// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/claimflow/claimflow/pkg/actions/apicall"
	"github.com/claimflow/claimflow/pkg/actions/document"
	"github.com/claimflow/claimflow/pkg/actions/email"
	"github.com/claimflow/claimflow/pkg/actions/notification"
	"github.com/claimflow/claimflow/pkg/actions/runworkflow"
	"github.com/claimflow/claimflow/pkg/actions/status"
	"github.com/claimflow/claimflow/pkg/actions/task"
	"github.com/claimflow/claimflow/pkg/actions/webhook"
	"github.com/claimflow/claimflow/pkg/claims"
	"github.com/claimflow/claimflow/pkg/protocol"
	"github.com/claimflow/claimflow/pkg/registry"
)

// NewRegistry creates the handler registry with every built-in handler except
// run_workflow, which needs the engine and is registered once it exists via
// RegisterRunWorkflow.
func NewRegistry(logger *slog.Logger, client *claims.Client) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	handlers := []protocol.ActionHandler{
		notification.NewHandler(client.Notifications),
		task.NewHandler(client.Tasks),
		status.NewHandler(client.Statuses),
		document.NewHandler(client.Documents),
		email.NewHandler(client.Email),
		webhook.NewHandler(),
		apicall.NewHandler(),
	}

	for _, handler := range handlers {
		if err := reg.Register(handler); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// RegisterRunWorkflow wires the nested-workflow handler once the runner (the
// engine) has been constructed.
func RegisterRunWorkflow(reg *registry.Registry, runner protocol.WorkflowRunner) error {
	return reg.Register(runworkflow.NewHandler(runner))
}
