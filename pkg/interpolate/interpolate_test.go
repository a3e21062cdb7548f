package interpolate_test

import (
	"testing"

	"github.com/claimflow/claimflow/pkg/interpolate"
	"github.com/claimflow/claimflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func execContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		TriggerData: map[string]any{
			"document": map[string]any{
				"name":   "claim-2031.pdf",
				"amount": 1500.5,
				"tags":   []any{"urgent"},
			},
		},
		Variables: map[string]any{
			"assignee": "adjuster-7",
		},
		State: map[string]any{
			"validate": map[string]any{"ok": true},
		},
	}
}

func TestString(t *testing.T) {
	interp := &interpolate.Interpolator{}
	ctx := execContext()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"single placeholder", "file: {{document.name}}", "file: claim-2031.pdf"},
		{"explicit namespace", "to {{variables.assignee}}", "to adjuster-7"},
		{"numeric renders plainly", "amount {{trigger.document.amount}}", "amount 1500.5"},
		{"missing renders empty", "x{{document.missing}}x", "xx"},
		{"whitespace tolerated", "{{ document.name }}", "claim-2031.pdf"},
		{"structured value renders as JSON", "{{state.validate}}", `{"ok":true}`},
		{"multiple placeholders", "{{document.name}}/{{variables.assignee}}", "claim-2031.pdf/adjuster-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, interp.String(tt.template, ctx))
		})
	}
}

func TestValue_RecursesPreservingStructure(t *testing.T) {
	interp := &interpolate.Interpolator{}
	ctx := execContext()

	config := map[string]any{
		"message": "document {{document.name}} received",
		"nested": map[string]any{
			"assignee": "{{variables.assignee}}",
			"count":    3,
		},
		"list":    []any{"{{document.name}}", 42, true},
		"untyped": nil,
	}

	resolved, ok := interp.Value(config, ctx).(map[string]any)
	assert.True(t, ok)

	assert.Equal(t, "document claim-2031.pdf received", resolved["message"])

	nested := resolved["nested"].(map[string]any)
	assert.Equal(t, "adjuster-7", nested["assignee"])
	assert.Equal(t, 3, nested["count"])

	list := resolved["list"].([]any)
	assert.Equal(t, "claim-2031.pdf", list[0])
	assert.Equal(t, 42, list[1])
	assert.Equal(t, true, list[2])

	assert.Nil(t, resolved["untyped"])

	// Input must not be mutated.
	assert.Equal(t, "document {{document.name}} received", config["message"])
}

func TestString_OnMissCallback(t *testing.T) {
	var missed []string

	interp := &interpolate.Interpolator{
		OnMiss: func(path string) {
			missed = append(missed, path)
		},
	}

	result := interp.String("{{document.name}} {{document.nope}} {{also.missing}}", execContext())

	assert.Equal(t, "claim-2031.pdf  ", result)
	assert.Equal(t, []string{"document.nope", "also.missing"}, missed)
}

func TestString_Idempotent(t *testing.T) {
	interp := &interpolate.Interpolator{}
	ctx := execContext()

	once := interp.String("file {{document.name}}", ctx)
	twice := interp.String(once, ctx)

	assert.Equal(t, once, twice)
}
