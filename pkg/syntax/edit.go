package syntax

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOverlappingEdits is returned by Apply when two replacements overlap.
var ErrOverlappingEdits = errors.New("overlapping edits")

// TextEdit replaces bytes [Start, End) of the original source with Text.
// Start == End denotes an insertion.
type TextEdit struct {
	Start int
	End   int
	Text  string

	seq int
}

// Editor accumulates edits against a Tree and materializes them in one pass.
// Edits always refer to offsets in the original source, so recording order
// does not shift later positions.
type Editor struct {
	tree     *Tree
	replaced map[Handle]int
	edits    []TextEdit
}

// NewEditor creates an editor for the given tree.
func NewEditor(tree *Tree) *Editor {
	return &Editor{
		tree:     tree,
		replaced: make(map[Handle]int),
	}
}

// Replace substitutes the exact span of node h. Surrounding trivia is kept.
// Replacing the same node again overwrites the earlier replacement.
func (e *Editor) Replace(h Handle, text string) {
	if idx, ok := e.replaced[h]; ok {
		e.edits[idx].Text = text
		return
	}
	start, end := e.tree.Span(h)
	e.replaced[h] = len(e.edits)
	e.edits = append(e.edits, TextEdit{
		Start: int(start),
		End:   int(end),
		Text:  text,
		seq:   len(e.edits),
	})
}

// Insert adds text at a byte offset of the original source.
// Multiple inserts at one offset keep their recording order.
func (e *Editor) Insert(offset int, text string) {
	e.edits = append(e.edits, TextEdit{
		Start: offset,
		End:   offset,
		Text:  text,
		seq:   len(e.edits),
	})
}

// Len returns the number of recorded edits.
func (e *Editor) Len() int {
	return len(e.edits)
}

// Edits returns the recorded edits sorted by position.
func (e *Editor) Edits() []TextEdit {
	out := make([]TextEdit, len(e.edits))
	copy(out, e.edits)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		aInsert, bInsert := a.Start == a.End, b.Start == b.End
		if aInsert != bInsert {
			return aInsert
		}
		return a.seq < b.seq
	})
	return out
}

// Apply returns the source with every edit applied.
func (e *Editor) Apply() (string, error) {
	src := e.tree.Source()
	if len(e.edits) == 0 {
		return string(src), nil
	}

	edits := e.Edits()
	var sb strings.Builder
	sb.Grow(len(src) + 64*len(edits))

	cursor := 0
	for _, ed := range edits {
		if ed.Start < cursor {
			return string(src), fmt.Errorf("%w: edit at %d overlaps previous edit ending at %d", ErrOverlappingEdits, ed.Start, cursor)
		}
		if ed.End > len(src) || ed.Start > ed.End {
			return string(src), fmt.Errorf("edit [%d,%d) out of range (source length %d)", ed.Start, ed.End, len(src))
		}
		sb.Write(src[cursor:ed.Start])
		sb.WriteString(ed.Text)
		cursor = ed.End
	}
	sb.Write(src[cursor:])
	return sb.String(), nil
}
