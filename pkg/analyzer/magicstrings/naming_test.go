package magicstrings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"lowercase word", "double", 30, "Double"},
		{"leading digits", "1double", 30, "Double"},
		{"leading digit run", "12some", 30, "Some"},
		{"all digits", "123123123", 30, ""},
		{"digits inside are kept", "a1b2", 30, "A1b2"},
		{"spaces removed", "hello big world", 30, "Hellobigworld"},
		{"punctuation removed", `c:\\test\\path`, 30, "Ctestpath"},
		{"escaped quote removed", `Other \"Const`, 30, "OtherConst"},
		{"underscore kept", "snake_case", 30, "Snake_case"},
		{"leading underscore", "_x", 30, "_x"},
		{"only punctuation", "?!.", 30, ""},
		{"unicode letters", "über größe", 30, "Übergröße"},
		{"truncated", "abcdefghij", 4, "Abcd"},
		{"digit after stripped space", "1 2x", 30, ""},
		{
			"long message",
			"There is a long message with full description of error (for example). Solver shouldn't create so long names for constants.",
			30,
			"Thereisalongmessagewithfulldes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidate(tt.content, tt.maxLen))
		})
	}
}

func TestNamer(t *testing.T) {
	t.Run("counter advances on every name", func(t *testing.T) {
		n := NewNamer(nil, 0)
		assert.Equal(t, "Text", n.Name("1Text"))
		assert.Equal(t, "C2", n.Name("2Text"))
		assert.Equal(t, "C3", n.Name("42"))
		assert.Equal(t, 3, n.Chosen())
	})

	t.Run("reserved names fall back", func(t *testing.T) {
		n := NewNamer(map[string]bool{"SampleMethod": true}, 0)
		assert.Equal(t, "C1", n.Name("SampleMethod"))
	})

	t.Run("taken fallback gets a suffix", func(t *testing.T) {
		n := NewNamer(map[string]bool{"C1": true, "C1_1": true}, 0)
		assert.Equal(t, "C1_2", n.Name("7"))
	})

	t.Run("reserved map is copied", func(t *testing.T) {
		reserved := map[string]bool{}
		n := NewNamer(reserved, 0)
		n.Name("value")
		assert.Empty(t, reserved)
	})

	t.Run("default length", func(t *testing.T) {
		n := NewNamer(nil, -1)
		name := n.Name(strings.Repeat("a", 50))
		assert.Len(t, name, DefaultMaxNameLength)
	})
}
