package stringutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short stays", "Hello", 50, "Hello"},
		{"exact length stays", "12345", 5, "12345"},
		{
			name:  "long cut to 47 plus ellipsis",
			input: "Explain quantum entanglement in simple terms please really in depth and thoroughly with examples",
			max:   50,
			want:  "Explain quantum entanglement in simple terms pl...",
		},
		{"multibyte counted as runes", "ééééé", 4, "é..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateTitle(tt.input, tt.max)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), tt.max)
		})
	}
}

func TestStripWrappingQuotes(t *testing.T) {
	assert.Equal(t, "Quantum Basics", StripWrappingQuotes(`"Quantum Basics"`))
	assert.Equal(t, "Quantum Basics", StripWrappingQuotes(`'Quantum Basics'`))
	assert.Equal(t, `Don't Panic`, StripWrappingQuotes(`Don't Panic`))
	assert.Equal(t, `"inner"`, StripWrappingQuotes(`""inner""`))
}

func TestPreviewText(t *testing.T) {
	assert.Equal(t, "Hi", PreviewText("Hi", 50))
	assert.Equal(t, "abc...", PreviewText("abcdef", 3))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c "))
}
