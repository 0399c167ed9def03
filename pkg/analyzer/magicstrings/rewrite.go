package magicstrings

import (
	"strings"

	"github.com/ccworks/hoist/pkg/syntax"
)

// EmptySentinel replaces empty string literals in executable code.
const EmptySentinel = "string.Empty"

type replaceKind int

const (
	replaceMagic replaceKind = iota + 1
	replaceEmpty
)

type replacement struct {
	node syntax.Handle
	text string
	kind replaceKind
}

type newConstant struct {
	name string
	raw  string
}

// scopePlan is the complete set of edits for one class scope. It is built
// without touching the editor and committed as a whole.
type scopePlan struct {
	scope        classScope
	constants    []newConstant
	replacements []replacement
	insertAt     int
	declarations string
}

// insertionPoint locates where new members go: after the line break that
// follows the opening brace of the body, or directly after the brace when
// the body continues on the same line.
func insertionPoint(tree *syntax.Tree, body syntax.Handle) (offset int, eol string, inline bool, ok bool) {
	if body == syntax.NoHandle {
		return 0, "", false, false
	}
	brace := tree.ChildOfKind(body, "{")
	if brace == syntax.NoHandle {
		return 0, "", false, false
	}

	src := tree.Source()
	_, end := tree.Span(brace)
	i := skipLineComments(src, int(end))

	switch {
	case i+1 < len(src) && src[i] == '\r' && src[i+1] == '\n':
		return i + 2, "\r\n", false, true
	case i < len(src) && src[i] == '\n':
		return i + 1, "\n", false, true
	default:
		return int(end), "", true, true
	}
}

// skipLineComments advances past blanks and comments that end on the
// current line. A block comment running onto later lines stops the scan.
func skipLineComments(src []byte, i int) int {
	for {
		for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
			i++
		}
		if i+1 >= len(src) || src[i] != '/' {
			return i
		}
		switch src[i+1] {
		case '/':
			for i < len(src) && src[i] != '\n' && src[i] != '\r' {
				i++
			}
			return i
		case '*':
			j := i + 2
			for j+1 < len(src) && !(src[j] == '*' && src[j+1] == '/') {
				if src[j] == '\n' || src[j] == '\r' {
					return i
				}
				j++
			}
			if j+1 >= len(src) {
				return i
			}
			i = j + 2
		default:
			return i
		}
	}
}

// memberIndent is the class line indentation plus one level.
func memberIndent(tree *syntax.Tree, scope syntax.Handle) string {
	indent := tree.LineIndent(scope)
	switch {
	case indent == "":
		return "    "
	case strings.Contains(indent, "\t"):
		return indent + "\t"
	default:
		return indent + "    "
	}
}

func declaration(name, raw string) string {
	return "private const string " + name + " = " + raw + ";"
}

// renderDeclarations builds the text inserted for the new constants.
func renderDeclarations(consts []newConstant, indent, eol string, inline bool) string {
	var sb strings.Builder
	for _, c := range consts {
		if inline {
			sb.WriteString(" ")
			sb.WriteString(declaration(c.name, c.raw))
			continue
		}
		sb.WriteString(indent)
		sb.WriteString(declaration(c.name, c.raw))
		sb.WriteString(eol)
	}
	return sb.String()
}

// commit records the plan on the editor. Kinds tracks the last replacement
// per node so statistics describe the emitted text.
func (p *scopePlan) commit(editor *syntax.Editor, kinds map[syntax.Handle]replaceKind) {
	if p.declarations != "" {
		editor.Insert(p.insertAt, p.declarations)
	}
	for _, r := range p.replacements {
		editor.Replace(r.node, r.text)
		kinds[r.node] = r.kind
	}
}
