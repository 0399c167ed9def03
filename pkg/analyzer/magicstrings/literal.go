package magicstrings

import "strings"

// LiteralForm is the quoting style of a C# string literal.
type LiteralForm int

const (
	FormUnknown      LiteralForm = iota
	FormRegular                  // "..."
	FormVerbatim                 // @"..."
	FormRaw                      // """..."""
	FormInterpolated             // $"...", $@"...", @$"...", $"""..."""
	FormUTF8                     // "..."u8
)

func (f LiteralForm) String() string {
	switch f {
	case FormRegular:
		return "regular"
	case FormVerbatim:
		return "verbatim"
	case FormRaw:
		return "raw"
	case FormInterpolated:
		return "interpolated"
	case FormUTF8:
		return "utf8"
	default:
		return "unknown"
	}
}

// Eligible reports whether literals of this form can be hoisted.
func (f LiteralForm) Eligible() bool {
	return f == FormRegular || f == FormVerbatim || f == FormRaw
}

// Literal node kinds produced by the C# grammar. Interpolated strings have
// their own expression node and are handled by the scope walk.
var literalKinds = map[string]bool{
	"string_literal":          true,
	"verbatim_string_literal": true,
	"raw_string_literal":      true,
	"utf8_string_literal":     true,
}

const (
	kindInterpolatedString = "interpolated_string_expression"
	kindInterpolation      = "interpolation"
)

// ClassifyLiteral determines the form of a literal from its raw text.
func ClassifyLiteral(raw string) LiteralForm {
	switch {
	case raw == "":
		return FormUnknown
	case strings.HasPrefix(raw, "$") || strings.HasPrefix(raw, "@$"):
		return FormInterpolated
	case strings.HasSuffix(raw, "u8") || strings.HasSuffix(raw, "U8"):
		return FormUTF8
	case strings.HasPrefix(raw, `@"`):
		return FormVerbatim
	case strings.HasPrefix(raw, `"""`):
		return FormRaw
	case strings.HasPrefix(raw, `"`):
		return FormRegular
	default:
		return FormUnknown
	}
}

// Content strips prefix, quotes and suffix from a literal's raw text.
// Escape sequences are kept as written.
func Content(raw string) string {
	form := ClassifyLiteral(raw)
	s := raw
	if form == FormUTF8 {
		s = s[:len(s)-2]
	}
	s = strings.TrimLeft(s, "$@")

	quotes := 1
	if form == FormRaw || (form == FormInterpolated && strings.HasPrefix(s, `"""`)) {
		quotes = 0
		for quotes < len(s) && s[quotes] == '"' {
			quotes++
		}
	}
	if len(s) < 2*quotes {
		return ""
	}
	return s[quotes : len(s)-quotes]
}

// IsEmptyLiteral reports whether raw is an eligible literal with no content.
func IsEmptyLiteral(raw string) bool {
	return ClassifyLiteral(raw).Eligible() && Content(raw) == ""
}
