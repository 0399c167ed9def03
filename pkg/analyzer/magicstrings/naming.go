package magicstrings

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultMaxNameLength caps synthesized constant names, in runes.
const DefaultMaxNameLength = 30

// Namer synthesizes collision-free constant names for one class scope.
// Its counter advances once per requested name, whether or not the
// fallback form is used.
type Namer struct {
	maxLen   int
	counter  int
	reserved map[string]bool
	chosen   map[string]bool
}

// NewNamer creates a namer that avoids the reserved member names.
func NewNamer(reserved map[string]bool, maxLen int) *Namer {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}
	r := make(map[string]bool, len(reserved))
	for name := range reserved {
		r[name] = true
	}
	return &Namer{
		maxLen:   maxLen,
		reserved: r,
		chosen:   make(map[string]bool),
	}
}

// Name returns the identifier for a literal with the given content.
func (n *Namer) Name(content string) string {
	n.counter++

	name := Candidate(content, n.maxLen)
	if name == "" || n.taken(name) {
		name = n.fallback()
	}
	n.chosen[name] = true
	return name
}

// Chosen returns the number of names handed out so far.
func (n *Namer) Chosen() int {
	return len(n.chosen)
}

func (n *Namer) taken(name string) bool {
	return n.reserved[name] || n.chosen[name]
}

func (n *Namer) fallback() string {
	base := "C" + strconv.Itoa(n.counter)
	if !n.taken(base) {
		return base
	}
	for k := 1; ; k++ {
		name := base + "_" + strconv.Itoa(k)
		if !n.taken(name) {
			return name
		}
	}
}

// Candidate derives an identifier from literal content, or returns "" when
// nothing usable remains. Content that is all digits is dropped, a leading
// digit run is stripped, spaces and non-word characters are removed, the
// result is cut to maxLen runes and its first rune upper-cased.
func Candidate(content string, maxLen int) string {
	runes := []rune(content)

	lead := 0
	for lead < len(runes) && unicode.IsDigit(runes[lead]) {
		lead++
	}
	runes = runes[lead:]

	var sb strings.Builder
	count := 0
	for _, r := range runes {
		if r == ' ' || !isWordRune(r) {
			continue
		}
		if maxLen > 0 && count == maxLen {
			break
		}
		if count == 0 {
			r = unicode.ToUpper(r)
		}
		sb.WriteRune(r)
		count++
	}

	name := sb.String()
	if name == "" {
		return ""
	}
	first := []rune(name)[0]
	if !unicode.IsLetter(first) && first != '_' {
		return ""
	}
	return name
}

// isWordRune matches the \w class: letters, decimal digits, nonspacing
// marks and connector punctuation.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.IsDigit(r) ||
		unicode.Is(unicode.Mn, r) ||
		unicode.Is(unicode.Pc, r)
}
