// Package magicstrings hoists string literals repeated inside a C# type
// into private constants and rewrites empty literals to string.Empty.
package magicstrings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ccworks/hoist/pkg/parser"
	"github.com/ccworks/hoist/pkg/syntax"
)

// ErrMalformedSource is wrapped by SyntaxError.
var ErrMalformedSource = errors.New("malformed source")

// SyntaxError reports the first unparseable region of a document.
type SyntaxError struct {
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at line %d, column %d", ErrMalformedSource, e.Line, e.Column)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformedSource
}

// Solver rewrites C# documents. It holds configuration only and is safe
// for concurrent use.
type Solver struct {
	scopeMode     ScopeMode
	emptySentinel bool
	maxNameLength int
	lenient       bool
	logger        *zap.Logger
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithScopeMode sets how passes treat nested types. Default is ScopeRecursive.
func WithScopeMode(mode ScopeMode) SolverOption {
	return func(s *Solver) {
		s.scopeMode = mode
	}
}

// WithEmptyStringSentinel toggles rewriting "" to string.Empty. Default on.
func WithEmptyStringSentinel(enabled bool) SolverOption {
	return func(s *Solver) {
		s.emptySentinel = enabled
	}
}

// WithMaxNameLength caps synthesized names (in runes).
func WithMaxNameLength(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.maxNameLength = n
		}
	}
}

// WithLenientParsing processes documents with syntax errors best-effort
// instead of returning them unchanged.
func WithLenientParsing() SolverOption {
	return func(s *Solver) {
		s.lenient = true
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) SolverOption {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSolver creates a solver with default options.
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{
		scopeMode:     ScopeRecursive,
		emptySentinel: true,
		maxNameLength: DefaultMaxNameLength,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScopeMode returns the configured scope mode.
func (s *Solver) ScopeMode() ScopeMode {
	return s.scopeMode
}

// Fingerprint identifies the options that influence output.
func (s *Solver) Fingerprint() string {
	return fmt.Sprintf("scope=%s;empty=%t;max=%d;lenient=%t", s.scopeMode, s.emptySentinel, s.maxNameLength, s.lenient)
}

// Solve rewrites text using a default solver.
func Solve(ctx context.Context, text string) (*Result, error) {
	return NewSolver().Solve(ctx, text)
}

// Solve rewrites one document. The returned Result is never nil: on error
// it carries the input unchanged with zero statistics.
func (s *Solver) Solve(ctx context.Context, text string) (*Result, error) {
	p := parser.New()
	defer p.Close()
	return s.SolveWithParser(ctx, p, []byte(text))
}

// SolveWithParser is Solve with a caller-owned parser.
func (s *Solver) SolveWithParser(ctx context.Context, p *parser.Parser, source []byte) (*Result, error) {
	unchanged := &Result{Text: string(source)}
	if err := ctx.Err(); err != nil {
		return unchanged, err
	}

	tree, err := syntax.Parse(ctx, p, source)
	if err != nil {
		return unchanged, fmt.Errorf("parse source: %w", err)
	}

	if h := tree.FirstError(); h != syntax.NoHandle {
		row, col := tree.Position(h)
		serr := &SyntaxError{Line: int(row) + 1, Column: int(col) + 1}
		if !s.lenient {
			return unchanged, serr
		}
		s.logger.Debug("solving malformed source", zap.Error(serr))
	}

	scopes := findScopes(tree)
	if len(scopes) == 0 {
		return unchanged, nil
	}

	editor := syntax.NewEditor(tree)
	kinds := make(map[syntax.Handle]replaceKind)
	result := &Result{}

	for _, sc := range scopes {
		if err := ctx.Err(); err != nil {
			return unchanged, err
		}

		plan := s.plan(tree, sc)
		plan.commit(editor, kinds)

		row, _ := tree.Position(sc.node)
		for _, c := range plan.constants {
			result.Constants = append(result.Constants, Constant{
				Scope: sc.name,
				Name:  c.name,
				Value: c.raw,
				Line:  row + 1,
			})
		}
		result.Stats.ConstantsCreated += len(plan.constants)

		s.logger.Debug("class scope planned",
			zap.String("scope", sc.name),
			zap.Int("constants", len(plan.constants)),
			zap.Int("replacements", len(plan.replacements)))
	}

	text, err := editor.Apply()
	if err != nil {
		return unchanged, fmt.Errorf("apply edits: %w", err)
	}

	for _, k := range kinds {
		switch k {
		case replaceMagic:
			result.Stats.MagicStringsReplaced++
		case replaceEmpty:
			result.Stats.EmptyStringsReplaced++
		}
	}
	result.Text = text
	return result, nil
}

// plan runs inventory, collection, naming and replacement for one scope.
func (s *Solver) plan(tree *syntax.Tree, sc classScope) *scopePlan {
	plan := &scopePlan{scope: sc}

	existing := existingConstants(tree, sc, s.scopeMode)
	occs := sc.literals(tree, s.scopeMode)

	namespace := make(map[string]string, len(existing.names))
	for raw, name := range existing.names {
		namespace[raw] = name
	}

	offset, eol, inline, canInsert := insertionPoint(tree, sc.body)
	if canInsert {
		namer := NewNamer(sc.memberNames(tree, s.scopeMode), s.maxNameLength)
		for _, raw := range duplicates(occs) {
			if _, ok := existing.lookup(raw); ok {
				continue
			}
			name := namer.Name(Content(raw))
			plan.constants = append(plan.constants, newConstant{name: name, raw: raw})
			namespace[raw] = name
		}
		if len(plan.constants) > 0 {
			plan.insertAt = offset
			plan.declarations = renderDeclarations(plan.constants, memberIndent(tree, sc.node), eol, inline)
		}
	}

	for _, o := range occs {
		if IsEmptyLiteral(o.raw) {
			if !s.emptySentinel {
				continue
			}
			if ctx := classifyContext(tree, o.node); ctx.keepsEmptyLiteral() {
				s.logger.Debug("empty literal kept", zap.String("scope", sc.name), zap.Stringer("context", ctx))
				continue
			}
			plan.replacements = append(plan.replacements, replacement{node: o.node, text: EmptySentinel, kind: replaceEmpty})
			continue
		}

		name, ok := namespace[o.raw]
		if !ok || inConstField(tree, o.node) {
			continue
		}
		plan.replacements = append(plan.replacements, replacement{node: o.node, text: name, kind: replaceMagic})
	}
	return plan
}
