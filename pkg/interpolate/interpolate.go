// Package interpolate rewrites {{dot.path}} placeholders in workflow action
// configuration using the execution context.
package interpolate

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/claimflow/claimflow/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.\-]+)\s*\}\}`)

// Interpolator resolves placeholders against an execution context. The zero
// value is ready to use. OnMiss, when set, receives the path of every
// placeholder that failed to resolve; misses render as empty strings either
// way so a stale template never aborts an action.
type Interpolator struct {
	OnMiss func(path string)
}

// String replaces every {{dot.path}} placeholder in the template. Paths
// resolve through trigger data, variables and state, honoring an explicit
// namespace prefix. A string without placeholders is returned unchanged.
func (i *Interpolator) String(template string, execCtx *models.ExecutionContext) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		resolved, found := execCtx.Lookup(path)
		if !found {
			if i.OnMiss != nil {
				i.OnMiss(path)
			}

			return ""
		}

		return render(resolved)
	})
}

// Value recurses into maps and slices, interpolating string leaves and
// leaving every other leaf untouched. Structure (keys, array order) is
// preserved; input collections are not mutated.
func (i *Interpolator) Value(value any, execCtx *models.ExecutionContext) any {
	switch typed := value.(type) {
	case string:
		return i.String(typed, execCtx)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, member := range typed {
			out[key] = i.Value(member, execCtx)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for index, member := range typed {
			out[index] = i.Value(member, execCtx)
		}

		return out
	default:
		return value
	}
}

// render stringifies a resolved value. Maps and slices render as compact
// JSON so structured values survive embedding into string config.
func render(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
