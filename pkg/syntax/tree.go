// Package syntax provides an arena-backed view of a tree-sitter parse tree.
//
// Every node is addressed by a stable Handle, so analyses can record edits
// against original nodes and materialize them later without holding on to
// CGO-backed tree-sitter nodes.
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ccworks/hoist/pkg/parser"
)

// Handle identifies a node inside a Tree.
type Handle int32

// NoHandle is returned when a node does not exist.
const NoHandle Handle = -1

// KindError is the kind tree-sitter assigns to unparseable regions.
const KindError = "ERROR"

type node struct {
	kind     string
	start    uint32
	end      uint32
	row      uint32
	column   uint32
	parent   Handle
	children []Handle
	name     Handle
	named    bool
	missing  bool
}

// Tree is an immutable, index-based copy of a parse tree and its source.
type Tree struct {
	source []byte
	nodes  []node
}

// Parse parses C# source with p and builds a Tree from the result.
func Parse(ctx context.Context, p *parser.Parser, source []byte) (*Tree, error) {
	result, err := p.Parse(ctx, source, parser.LangCSharp, "")
	if err != nil {
		return nil, err
	}
	defer result.Close()

	if result.Tree == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}
	return Build(result), nil
}

// Build copies a tree-sitter parse result into an arena.
func Build(result *parser.ParseResult) *Tree {
	t := &Tree{
		source: result.Source,
		nodes:  make([]node, 0, 256),
	}
	t.add(result.Tree.RootNode(), NoHandle)
	return t
}

func (t *Tree) add(n *sitter.Node, parent Handle) Handle {
	h := Handle(len(t.nodes))
	start := n.StartPoint()
	t.nodes = append(t.nodes, node{
		kind:    n.Type(),
		start:   n.StartByte(),
		end:     n.EndByte(),
		row:     start.Row,
		column:  start.Column,
		parent:  parent,
		name:    NoHandle,
		named:   n.IsNamed(),
		missing: n.IsMissing(),
	})

	count := int(n.ChildCount())
	if count == 0 {
		return h
	}

	children := make([]Handle, 0, count)
	for i := range count {
		child := n.Child(i)
		if child == nil {
			continue
		}
		children = append(children, t.add(child, h))
	}
	t.nodes[h].children = children

	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		for _, c := range children {
			cn := &t.nodes[c]
			if cn.start == nameNode.StartByte() && cn.end == nameNode.EndByte() && cn.kind == nameNode.Type() {
				t.nodes[h].name = c
				break
			}
		}
	}
	return h
}

// Source returns the text the tree was built from.
func (t *Tree) Source() []byte {
	return t.source
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node handle.
func (t *Tree) Root() Handle {
	if len(t.nodes) == 0 {
		return NoHandle
	}
	return 0
}

func (t *Tree) valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.nodes)
}

// Kind returns the grammar type of the node.
func (t *Tree) Kind(h Handle) string {
	if !t.valid(h) {
		return ""
	}
	return t.nodes[h].kind
}

// IsNamed reports whether the node is a named grammar node.
func (t *Tree) IsNamed(h Handle) bool {
	return t.valid(h) && t.nodes[h].named
}

// Span returns the byte range [start, end) covered by the node.
func (t *Tree) Span(h Handle) (start, end uint32) {
	if !t.valid(h) {
		return 0, 0
	}
	return t.nodes[h].start, t.nodes[h].end
}

// Position returns the zero-based row and column of the node start.
func (t *Tree) Position(h Handle) (row, column uint32) {
	if !t.valid(h) {
		return 0, 0
	}
	return t.nodes[h].row, t.nodes[h].column
}

// Text returns the raw source text of the node without surrounding trivia.
func (t *Tree) Text(h Handle) string {
	if !t.valid(h) {
		return ""
	}
	n := t.nodes[h]
	if n.start > n.end || n.end > uint32(len(t.source)) {
		return ""
	}
	return string(t.source[n.start:n.end])
}

// Parent returns the parent handle, or NoHandle for the root.
func (t *Tree) Parent(h Handle) Handle {
	if !t.valid(h) {
		return NoHandle
	}
	return t.nodes[h].parent
}

// Children returns all children, named and anonymous, in source order.
func (t *Tree) Children(h Handle) []Handle {
	if !t.valid(h) {
		return nil
	}
	return t.nodes[h].children
}

// NamedChildren returns the named children in source order.
func (t *Tree) NamedChildren(h Handle) []Handle {
	var out []Handle
	for _, c := range t.Children(h) {
		if t.nodes[c].named {
			out = append(out, c)
		}
	}
	return out
}

// ChildOfKind returns the first direct child with the given kind.
func (t *Tree) ChildOfKind(h Handle, kind string) Handle {
	for _, c := range t.Children(h) {
		if t.nodes[c].kind == kind {
			return c
		}
	}
	return NoHandle
}

// ChildrenOfKind returns every direct child with the given kind.
func (t *Tree) ChildrenOfKind(h Handle, kind string) []Handle {
	var out []Handle
	for _, c := range t.Children(h) {
		if t.nodes[c].kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Name returns the node bound to the grammar's "name" field, if any.
func (t *Tree) Name(h Handle) Handle {
	if !t.valid(h) {
		return NoHandle
	}
	return t.nodes[h].name
}

// Walk visits h and its descendants in document order.
// Returning false from fn skips the children of the visited node.
func (t *Tree) Walk(h Handle, fn func(Handle) bool) {
	if !t.valid(h) {
		return
	}
	if !fn(h) {
		return
	}
	for _, c := range t.nodes[h].children {
		t.Walk(c, fn)
	}
}

// Ancestors calls fn for each proper ancestor of h, nearest first,
// until fn returns false or the root has been visited.
func (t *Tree) Ancestors(h Handle, fn func(Handle) bool) {
	for p := t.Parent(h); p != NoHandle; p = t.Parent(p) {
		if !fn(p) {
			return
		}
	}
}

// FirstError returns the first ERROR or missing node in document order.
func (t *Tree) FirstError() Handle {
	found := NoHandle
	t.Walk(t.Root(), func(h Handle) bool {
		if found != NoHandle {
			return false
		}
		n := t.nodes[h]
		if n.kind == KindError || n.missing {
			found = h
			return false
		}
		return true
	})
	return found
}

// LeadingTrivia returns the whitespace run immediately before the node.
func (t *Tree) LeadingTrivia(h Handle) string {
	start, _ := t.Span(h)
	i := int(start)
	for i > 0 && isSpace(t.source[i-1]) {
		i--
	}
	return string(t.source[i:start])
}

// TrailingTrivia returns the spaces and tabs after the node, up to and
// including the next line break.
func (t *Tree) TrailingTrivia(h Handle) string {
	_, end := t.Span(h)
	i := int(end)
	for i < len(t.source) && (t.source[i] == ' ' || t.source[i] == '\t') {
		i++
	}
	if i < len(t.source) && t.source[i] == '\r' {
		i++
	}
	if i < len(t.source) && t.source[i] == '\n' {
		i++
	}
	return string(t.source[end:i])
}

// LineIndent returns the whitespace prefix of the line the node starts on.
func (t *Tree) LineIndent(h Handle) string {
	start, _ := t.Span(h)
	lineStart := int(start)
	for lineStart > 0 && t.source[lineStart-1] != '\n' {
		lineStart--
	}
	i := lineStart
	for i < len(t.source) && (t.source[i] == ' ' || t.source[i] == '\t') {
		i++
	}
	return string(t.source[lineStart:i])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
