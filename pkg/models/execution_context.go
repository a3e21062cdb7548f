package models

import (
	"strconv"
	"strings"
	"time"
)

// Context namespaces, in unprefixed lookup order.
const (
	NamespaceTrigger   = "trigger"
	NamespaceVariables = "variables"
	NamespaceState     = "state"
)

// ExecutionContext is the mutable, execution-scoped data visible to condition
// evaluation, interpolation and action handlers. It is created once per
// execution and owned exclusively by it.
type ExecutionContext struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id"`
	TriggeredBy    string         `json:"triggered_by"`
	TriggeredAt    time.Time      `json:"triggered_at"`
	TriggerData    map[string]any `json:"trigger_data,omitempty"`
	Variables      map[string]any `json:"variables,omitempty"`
	State          map[string]any `json:"state,omitempty"`

	// DryRun asks handlers to suppress mutating side effects while still
	// evaluating and recording the run.
	DryRun bool `json:"dry_run,omitempty"`

	// Depth counts nested run_workflow invocations for recursion guarding.
	Depth int `json:"depth,omitempty"`
}

// SetState records an action result for later lookup under state.<actionID>.
func (c *ExecutionContext) SetState(actionID string, value any) {
	if c.State == nil {
		c.State = make(map[string]any)
	}

	c.State[actionID] = value
}

// Lookup resolves a dot-path against the context. An explicit namespace
// prefix (trigger., variables., state.) pins the search to one namespace;
// otherwise trigger data, variables and state are tried in that fixed order
// and the first namespace defining the head segment wins. The boolean result
// distinguishes an explicit null from an absent path.
func (c *ExecutionContext) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	switch segments[0] {
	case NamespaceTrigger:
		return walkPath(c.TriggerData, segments[1:])
	case NamespaceVariables:
		return walkPath(c.Variables, segments[1:])
	case NamespaceState:
		return walkPath(c.State, segments[1:])
	}

	for _, ns := range []map[string]any{c.TriggerData, c.Variables, c.State} {
		if _, defined := ns[segments[0]]; defined {
			return walkPath(ns, segments)
		}
	}

	return nil, false
}

// walkPath traverses nested maps (and slices by numeric index) one segment
// at a time. An empty segment list resolves to the namespace itself.
func walkPath(root map[string]any, segments []string) (any, bool) {
	if root == nil {
		return nil, false
	}

	var current any = root

	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			value, defined := node[segment]
			if !defined {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}
