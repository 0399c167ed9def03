package magicstrings

import (
	"strings"

	"github.com/ccworks/hoist/pkg/syntax"
)

// Type declarations that own a constant namespace.
var scopeKinds = map[string]bool{
	"class_declaration":         true,
	"struct_declaration":        true,
	"record_declaration":        true,
	"record_struct_declaration": true,
}

// Every type declaration. These bound ancestor walks and isolated passes.
var typeKinds = map[string]bool{
	"class_declaration":         true,
	"struct_declaration":        true,
	"record_declaration":        true,
	"record_struct_declaration": true,
	"interface_declaration":     true,
	"enum_declaration":          true,
}

const (
	kindBody             = "declaration_list"
	kindField            = "field_declaration"
	kindEventField       = "event_field_declaration"
	kindVarDeclaration   = "variable_declaration"
	kindVarDeclarator    = "variable_declarator"
	kindParameter        = "parameter"
	kindParameterList    = "parameter_list"
	kindLocalDeclaration = "local_declaration_statement"
	kindAttributeArg     = "attribute_argument"
	kindModifier         = "modifier"
	kindIdentifier       = "identifier"
	kindSwitchSection    = "switch_section"
	kindSwitchArm        = "switch_expression_arm"
	kindIsPattern        = "is_pattern_expression"
)

// Patterns and case labels require compile-time constants.
var patternKinds = map[string]bool{
	"constant_pattern":          true,
	"case_switch_label":         true,
	"case_pattern_switch_label": true,
}

// classScope is one class-like declaration and its body.
type classScope struct {
	node syntax.Handle
	body syntax.Handle
	name string
}

// findScopes returns every class scope in document order.
func findScopes(tree *syntax.Tree) []classScope {
	var scopes []classScope
	tree.Walk(tree.Root(), func(h syntax.Handle) bool {
		if scopeKinds[tree.Kind(h)] {
			scopes = append(scopes, classScope{
				node: h,
				body: tree.ChildOfKind(h, kindBody),
				name: tree.Text(tree.Name(h)),
			})
		}
		return true
	})
	return scopes
}

// walkScope visits root and its descendants in document order. Literal
// nodes are visited but never entered; interpolated strings are entered
// only through their interpolation holes. In isolated mode nested type
// declarations are skipped entirely.
func walkScope(tree *syntax.Tree, root syntax.Handle, mode ScopeMode, fn func(syntax.Handle) bool) {
	var visit func(h syntax.Handle)
	visit = func(h syntax.Handle) {
		kind := tree.Kind(h)
		if h != root && mode == ScopeIsolated && typeKinds[kind] {
			return
		}
		if !fn(h) || literalKinds[kind] {
			return
		}
		for _, c := range tree.Children(h) {
			if kind == kindInterpolatedString && tree.Kind(c) != kindInterpolation {
				continue
			}
			visit(c)
		}
	}
	visit(root)
}

// occurrence is one eligible string literal inside a scope.
type occurrence struct {
	node syntax.Handle
	raw  string
}

func (sc classScope) literals(tree *syntax.Tree, mode ScopeMode) []occurrence {
	var out []occurrence
	walkScope(tree, sc.node, mode, func(h syntax.Handle) bool {
		if !literalKinds[tree.Kind(h)] {
			return true
		}
		raw := tree.Text(h)
		if ClassifyLiteral(raw).Eligible() {
			out = append(out, occurrence{node: h, raw: raw})
		}
		return false
	})
	return out
}

// literalContext tags where an empty literal sits.
type literalContext int

const (
	contextCode literalContext = iota
	contextConstField
	contextParameter
	contextAttribute
	contextConstLocal
	contextPattern
)

func (c literalContext) String() string {
	switch c {
	case contextConstField:
		return "const field"
	case contextParameter:
		return "parameter default"
	case contextAttribute:
		return "attribute argument"
	case contextConstLocal:
		return "const local"
	case contextPattern:
		return "pattern"
	default:
		return "code"
	}
}

// keepsEmptyLiteral reports whether string.Empty cannot stand in for "".
func (c literalContext) keepsEmptyLiteral() bool {
	return c != contextCode
}

// classifyContext finds the nearest enclosing construct that decides how
// an empty literal is treated. The walk stops at the enclosing type.
func classifyContext(tree *syntax.Tree, h syntax.Handle) literalContext {
	prev := h
	for p := tree.Parent(h); p != syntax.NoHandle; prev, p = p, tree.Parent(p) {
		switch kind := tree.Kind(p); {
		case typeKinds[kind]:
			return contextCode
		case kind == kindField:
			if hasConstModifier(tree, p) {
				return contextConstField
			}
			return contextCode
		case kind == kindParameter:
			return contextParameter
		case kind == kindLocalDeclaration:
			if hasConstModifier(tree, p) {
				return contextConstLocal
			}
			return contextCode
		case kind == kindAttributeArg:
			return contextAttribute
		case patternKinds[kind]:
			return contextPattern
		case kind == kindSwitchSection:
			if !isStatement(tree.Kind(prev)) {
				return contextPattern
			}
			return contextCode
		case kind == kindSwitchArm:
			if prev == firstNamedChild(tree, p) {
				return contextPattern
			}
			return contextCode
		case kind == kindIsPattern:
			if prev != firstNamedChild(tree, p) {
				return contextPattern
			}
			return contextCode
		}
	}
	return contextCode
}

func isStatement(kind string) bool {
	return kind == "block" || strings.HasSuffix(kind, "_statement")
}

func firstNamedChild(tree *syntax.Tree, h syntax.Handle) syntax.Handle {
	for _, c := range tree.Children(h) {
		if tree.IsNamed(c) {
			return c
		}
	}
	return syntax.NoHandle
}

// inConstField reports whether h belongs to a const field declaration.
func inConstField(tree *syntax.Tree, h syntax.Handle) bool {
	found := false
	tree.Ancestors(h, func(p syntax.Handle) bool {
		kind := tree.Kind(p)
		if typeKinds[kind] {
			return false
		}
		if kind == kindField {
			found = hasConstModifier(tree, p)
			return false
		}
		return true
	})
	return found
}

func hasConstModifier(tree *syntax.Tree, h syntax.Handle) bool {
	for _, c := range tree.Children(h) {
		switch tree.Kind(c) {
		case "const":
			return true
		case kindModifier:
			if strings.TrimSpace(tree.Text(c)) == "const" {
				return true
			}
		}
	}
	return false
}

// declarators returns the variable declarators of a field or local declaration.
func declarators(tree *syntax.Tree, decl syntax.Handle) []syntax.Handle {
	vd := tree.ChildOfKind(decl, kindVarDeclaration)
	if vd == syntax.NoHandle {
		return nil
	}
	return tree.ChildrenOfKind(vd, kindVarDeclarator)
}

func declaratorName(tree *syntax.Tree, d syntax.Handle) syntax.Handle {
	if n := tree.Name(d); n != syntax.NoHandle {
		return n
	}
	return tree.ChildOfKind(d, kindIdentifier)
}

// memberNames collects the identifiers a new constant must not reuse: the
// type's own name, its primary constructor parameters and every named
// member. Recursive passes also reserve the members of nested types, since
// a nested member would shadow the new constant there.
func (sc classScope) memberNames(tree *syntax.Tree, mode ScopeMode) map[string]bool {
	names := make(map[string]bool)
	if sc.name != "" {
		names[sc.name] = true
	}
	if params := tree.ChildOfKind(sc.node, kindParameterList); params != syntax.NoHandle {
		for _, p := range tree.ChildrenOfKind(params, kindParameter) {
			if n := tree.Name(p); n != syntax.NoHandle {
				names[tree.Text(n)] = true
			}
		}
	}

	var collect func(body syntax.Handle)
	collect = func(body syntax.Handle) {
		for _, m := range tree.NamedChildren(body) {
			kind := tree.Kind(m)
			switch {
			case kind == kindField || kind == kindEventField:
				for _, d := range declarators(tree, m) {
					if n := declaratorName(tree, d); n != syntax.NoHandle {
						names[tree.Text(n)] = true
					}
				}
			default:
				if n := tree.Name(m); n != syntax.NoHandle {
					names[tree.Text(n)] = true
				}
			}
			if mode == ScopeRecursive && typeKinds[kind] {
				if nested := tree.ChildOfKind(m, kindBody); nested != syntax.NoHandle {
					collect(nested)
				}
			}
		}
	}
	if sc.body != syntax.NoHandle {
		collect(sc.body)
	}
	return names
}
