package models

// ConditionOperator is the fixed operator set for workflow conditions.
type ConditionOperator string

const (
	OperatorEquals       ConditionOperator = "equals"
	OperatorNotEquals    ConditionOperator = "not_equals"
	OperatorContains     ConditionOperator = "contains"
	OperatorNotContains  ConditionOperator = "not_contains"
	OperatorGreaterThan  ConditionOperator = "greater_than"
	OperatorLessThan     ConditionOperator = "less_than"
	OperatorIn           ConditionOperator = "in"
	OperatorNotIn        ConditionOperator = "not_in"
	OperatorMatchesRegex ConditionOperator = "matches_regex"
)

// LogicalOperator combines a condition with its predecessor in a list.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
)

// WorkflowCondition is a single field/operator/value check against the
// execution context. Field is a dot-path resolved across trigger data,
// variables and state.
type WorkflowCondition struct {
	Field           string            `json:"field"    validate:"required"`
	Operator        ConditionOperator `json:"operator" validate:"required"`
	Value           any               `json:"value"`
	LogicalOperator LogicalOperator   `json:"logical_operator,omitempty"`
}

// Combinator returns the logical operator joining this condition to the
// previous one, defaulting to AND.
func (c *WorkflowCondition) Combinator() LogicalOperator {
	if c.LogicalOperator == LogicalOr {
		return LogicalOr
	}

	return LogicalAnd
}
