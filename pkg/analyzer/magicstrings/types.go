package magicstrings

import "time"

// ScopeMode controls how far a class scope pass reaches into nested types.
type ScopeMode string

// String implements fmt.Stringer for toon serialization.
func (m ScopeMode) String() string {
	return string(m)
}

const (
	// ScopeRecursive lets each pass see literals and constants of nested
	// types. Nested types are revisited by their own pass, and the last
	// replacement recorded for a literal wins.
	ScopeRecursive ScopeMode = "recursive"
	// ScopeIsolated restricts each pass to the type's own members.
	ScopeIsolated ScopeMode = "isolated"
)

// ParseScopeMode converts a configuration value into a ScopeMode.
func ParseScopeMode(s string) (ScopeMode, bool) {
	switch ScopeMode(s) {
	case ScopeRecursive, "":
		return ScopeRecursive, true
	case ScopeIsolated:
		return ScopeIsolated, true
	default:
		return "", false
	}
}

// Stats counts the changes made to one document or a batch of documents.
type Stats struct {
	ConstantsCreated     int `json:"constants_created" toon:"constants_created"`
	MagicStringsReplaced int `json:"magic_strings_replaced" toon:"magic_strings_replaced"`
	EmptyStringsReplaced int `json:"empty_strings_replaced" toon:"empty_strings_replaced"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.ConstantsCreated += other.ConstantsCreated
	s.MagicStringsReplaced += other.MagicStringsReplaced
	s.EmptyStringsReplaced += other.EmptyStringsReplaced
}

// Changed reports whether any rewrite happened.
func (s Stats) Changed() bool {
	return s.ConstantsCreated > 0 || s.MagicStringsReplaced > 0 || s.EmptyStringsReplaced > 0
}

// Constant describes a constant declaration added to a type.
type Constant struct {
	Scope string `json:"scope" toon:"scope"`
	Name  string `json:"name" toon:"name"`
	Value string `json:"value" toon:"value"`
	Line  uint32 `json:"line" toon:"line"`
}

// Result is the outcome of solving one document.
type Result struct {
	Text      string     `json:"text" toon:"text"`
	Stats     Stats      `json:"stats" toon:"stats"`
	Constants []Constant `json:"constants,omitempty" toon:"constants,omitempty"`
}

// FileResult is the outcome of solving one file in a batch.
type FileResult struct {
	Path      string     `json:"path" toon:"path"`
	Stats     Stats      `json:"stats" toon:"stats"`
	Changed   bool       `json:"changed" toon:"changed"`
	Constants []Constant `json:"constants,omitempty" toon:"constants,omitempty"`
	Error     string     `json:"error,omitempty" toon:"error,omitempty"`

	// Text holds the rewritten source; it is not part of reports.
	Text string `json:"-" toon:"-"`
}

// Summary aggregates a batch.
type Summary struct {
	TotalFiles   int   `json:"total_files" toon:"total_files"`
	ChangedFiles int   `json:"changed_files" toon:"changed_files"`
	FailedFiles  int   `json:"failed_files" toon:"failed_files"`
	Stats        Stats `json:"stats" toon:"stats"`
}

// Analysis is the result of a batch run.
type Analysis struct {
	Files      []FileResult `json:"files" toon:"files"`
	Summary    Summary      `json:"summary" toon:"summary"`
	ScopeMode  ScopeMode    `json:"scope_mode" toon:"scope_mode"`
	AnalyzedAt time.Time    `json:"analyzed_at" toon:"analyzed_at"`
}

// ChangedFiles returns the files whose text differs after solving.
func (a *Analysis) ChangedFiles() []FileResult {
	var out []FileResult
	for _, f := range a.Files {
		if f.Changed {
			out = append(out, f)
		}
	}
	return out
}
