// Package registry maps action types to their handlers.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/claimflow/claimflow/pkg/models"
	"github.com/claimflow/claimflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds the action handlers known to the engine. Registration
// normally happens at process startup; the mutex makes later registration
// safe if a host application adds handlers dynamically.
type Registry struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[models.ActionType]protocol.ActionHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[models.ActionType]protocol.ActionHandler),
	}
}

// Register adds a handler, validating it at registration time rather than at
// call time. Registering a duplicate type is an error so misconfigured hosts
// fail at startup.
func (r *Registry) Register(handler protocol.ActionHandler) error {
	if handler.Type() == "" {
		return fmt.Errorf("action handler has empty type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[handler.Type()]; exists {
		return fmt.Errorf("action type %q already registered", handler.Type())
	}

	r.handlers[handler.Type()] = handler
	r.logger.Info("Registered action handler", "action_type", handler.Type())

	return nil
}

// Resolve returns the handler for the given action type.
func (r *Registry) Resolve(actionType models.ActionType) (protocol.ActionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", actionType)
	}

	return handler, nil
}

// Types returns the registered action types.
func (r *Registry) Types() []models.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.ActionType, 0, len(r.handlers))
	for actionType := range r.handlers {
		types = append(types, actionType)
	}

	return types
}

// ValidateConfig checks an action's config against its handler's JSON schema.
// Handlers without a schema accept any config.
func (r *Registry) ValidateConfig(action *models.WorkflowAction) error {
	handler, err := r.Resolve(action.Type)
	if err != nil {
		return err
	}

	schema := handler.Schema()
	if schema == nil {
		return nil
	}

	config := action.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for action %q: %w", action.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid config for action %q: %s", action.ID, result.Errors()[0].String())
	}

	return nil
}

// HealthCheck reports whether the registry is serviceable.
func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.handlers) == 0 {
		return "no action handlers registered", false
	}

	return fmt.Sprintf("%d action handlers registered", len(r.handlers)), true
}
