package magicstrings

import "github.com/ccworks/hoist/pkg/syntax"

// inventory maps raw literal text to the name of a const field holding it.
type inventory struct {
	names map[string]string
	order []string
}

func (inv *inventory) add(raw, name string) {
	if _, ok := inv.names[raw]; ok {
		return
	}
	inv.names[raw] = name
	inv.order = append(inv.order, raw)
}

func (inv *inventory) lookup(raw string) (string, bool) {
	name, ok := inv.names[raw]
	return name, ok
}

// existingConstants indexes the const string fields visible to a scope pass.
// A declarator qualifies when its initializer holds exactly one eligible,
// non-empty literal. The first declaration of a value wins.
func existingConstants(tree *syntax.Tree, sc classScope, mode ScopeMode) *inventory {
	inv := &inventory{names: make(map[string]string)}

	walkScope(tree, sc.node, mode, func(h syntax.Handle) bool {
		if tree.Kind(h) != kindField {
			return true
		}
		if !hasConstModifier(tree, h) {
			return false
		}
		for _, d := range declarators(tree, h) {
			name := declaratorName(tree, d)
			if name == syntax.NoHandle {
				continue
			}
			raw, ok := singleLiteral(tree, d, name)
			if !ok || IsEmptyLiteral(raw) {
				continue
			}
			inv.add(raw, tree.Text(name))
		}
		return false
	})
	return inv
}

// singleLiteral returns the raw text of the only eligible literal under
// the declarator, ignoring the name node.
func singleLiteral(tree *syntax.Tree, d, name syntax.Handle) (string, bool) {
	var raws []string
	walkScope(tree, d, ScopeRecursive, func(h syntax.Handle) bool {
		if h == name {
			return false
		}
		if literalKinds[tree.Kind(h)] {
			raw := tree.Text(h)
			if ClassifyLiteral(raw).Eligible() {
				raws = append(raws, raw)
			}
			return false
		}
		return true
	})
	if len(raws) != 1 {
		return "", false
	}
	return raws[0], true
}
