package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
	}{
		{
			name:     "named and positional",
			template: "Hi {{name}}, your order {{1}} ships {{ 2 }}.",
			values:   map[string]string{"name": "Ana", "1": "#42", "2": "today"},
			want:     "Hi Ana, your order #42 ships today.",
		},
		{
			name:     "unknown placeholder stays visible",
			template: "Hello {{name}}, code {{code}}",
			values:   map[string]string{"name": "Rui"},
			want:     "Hello Rui, code {{code}}",
		},
		{
			name:     "repeated placeholder",
			template: "{{x}}-{{x}}",
			values:   map[string]string{"x": "a"},
			want:     "a-a",
		},
		{
			name:     "no placeholders",
			template: "plain text {not} {{}}",
			values:   nil,
			want:     "plain text {not} {{}}",
		},
		{
			name:     "empty value replaces",
			template: "[{{a}}]",
			values:   map[string]string{"a": ""},
			want:     "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.values))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"2", "name", "1"}, Placeholders("{{2}} {{name}} {{ 2 }} {{1}}"))
	assert.Empty(t, Placeholders("nothing here"))
}

func TestMissing(t *testing.T) {
	got := Missing("{{a}} {{b}} {{c}}", map[string]string{"a": "x", "b": "  "})
	assert.Equal(t, []string{"b", "c"}, got)
}

func TestSample(t *testing.T) {
	assert.Equal(t, "Hi [name], order [1]", Sample("Hi {{name}}, order {{ 1 }}"))
}
