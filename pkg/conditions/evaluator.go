// Package conditions evaluates workflow conditions against an execution context.
package conditions

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/claimflow/claimflow/pkg/models"
)

// Diagnostic describes a condition that degraded to false instead of failing
// the run (bad regex, non-numeric comparison, type mismatch). Evaluation
// semantics never change because of a diagnostic; it only adds visibility.
type Diagnostic struct {
	Field    string                   `json:"field"`
	Operator models.ConditionOperator `json:"operator"`
	Reason   string                   `json:"reason"`
}

// Evaluator applies workflow conditions to an execution context. The zero
// value is ready to use; OnDiagnostic, when set, receives anomalies that
// degraded to false.
type Evaluator struct {
	OnDiagnostic func(Diagnostic)
}

// Evaluate combines conditions left-to-right using each condition's own
// logical operator (default AND). Conjunctive chains short-circuit on the
// first false member; an OR boundary resumes evaluation from a fresh truth
// value. An empty list is vacuously true.
func (e *Evaluator) Evaluate(conds []*models.WorkflowCondition, execCtx *models.ExecutionContext) bool {
	if len(conds) == 0 {
		return true
	}

	group := true

	for i, cond := range conds {
		if i > 0 && cond.Combinator() == models.LogicalOr {
			if group {
				return true
			}

			group = true
		}

		if group {
			group = e.evaluateOne(cond, execCtx)
		}
	}

	return group
}

func (e *Evaluator) evaluateOne(cond *models.WorkflowCondition, execCtx *models.ExecutionContext) bool {
	resolved, found := execCtx.Lookup(cond.Field)

	switch cond.Operator {
	case models.OperatorEquals:
		// An absent path equals nothing, not even an explicit null.
		return found && deepEqual(resolved, cond.Value)
	case models.OperatorNotEquals:
		return !(found && deepEqual(resolved, cond.Value))
	case models.OperatorContains:
		return e.contains(cond, resolved)
	case models.OperatorNotContains:
		ok, applicable := e.containsApplicable(cond, resolved)
		if !applicable {
			return false
		}

		return !ok
	case models.OperatorGreaterThan:
		return e.compareNumeric(cond, resolved, found, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return e.compareNumeric(cond, resolved, found, func(a, b float64) bool { return a < b })
	case models.OperatorIn:
		return e.membership(cond, resolved, found)
	case models.OperatorNotIn:
		candidates, ok := cond.Value.([]any)
		if !ok {
			e.diagnose(cond, "in/not_in value is not an array")

			return false
		}

		return !memberOf(resolved, found, candidates)
	case models.OperatorMatchesRegex:
		return e.matchesRegex(cond, resolved)
	default:
		e.diagnose(cond, fmt.Sprintf("unknown operator %q", cond.Operator))

		return false
	}
}

func (e *Evaluator) contains(cond *models.WorkflowCondition, resolved any) bool {
	ok, applicable := e.containsApplicable(cond, resolved)

	return applicable && ok
}

// containsApplicable reports (contained, applicable). Non-string, non-array
// resolved values make the operator inapplicable and the condition false.
func (e *Evaluator) containsApplicable(cond *models.WorkflowCondition, resolved any) (bool, bool) {
	switch haystack := resolved.(type) {
	case string:
		return strings.Contains(haystack, stringify(cond.Value)), true
	case []any:
		for _, member := range haystack {
			if deepEqual(member, cond.Value) {
				return true, true
			}
		}

		return false, true
	default:
		e.diagnose(cond, "contains applied to non-string, non-array value")

		return false, false
	}
}

func (e *Evaluator) compareNumeric(cond *models.WorkflowCondition, resolved any, found bool, cmp func(a, b float64) bool) bool {
	if !found {
		return false
	}

	left, leftOK := toNumber(resolved)
	right, rightOK := toNumber(cond.Value)

	if !leftOK || !rightOK {
		e.diagnose(cond, "non-numeric operand in numeric comparison")

		return false
	}

	return cmp(left, right)
}

func (e *Evaluator) membership(cond *models.WorkflowCondition, resolved any, found bool) bool {
	candidates, ok := cond.Value.([]any)
	if !ok {
		e.diagnose(cond, "in/not_in value is not an array")

		return false
	}

	return memberOf(resolved, found, candidates)
}

func (e *Evaluator) matchesRegex(cond *models.WorkflowCondition, resolved any) bool {
	pattern, ok := cond.Value.(string)
	if !ok {
		e.diagnose(cond, "matches_regex value is not a string")

		return false
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		// Fail closed on a bad pattern, a bad condition never aborts a run.
		e.diagnose(cond, "invalid regex pattern: "+err.Error())

		return false
	}

	return re.MatchString(stringify(resolved))
}

func (e *Evaluator) diagnose(cond *models.WorkflowCondition, reason string) {
	if e.OnDiagnostic == nil {
		return
	}

	e.OnDiagnostic(Diagnostic{Field: cond.Field, Operator: cond.Operator, Reason: reason})
}

func memberOf(resolved any, found bool, candidates []any) bool {
	if !found {
		return false
	}

	for _, candidate := range candidates {
		if deepEqual(resolved, candidate) {
			return true
		}
	}

	return false
}

// deepEqual compares values structurally, normalizing numeric types so that
// JSON-decoded float64s compare equal to literal ints.
func deepEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}

		return false
	}

	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
