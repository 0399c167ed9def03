package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeHoist() string {
	return `Rewrites one C# source file: string literals repeated inside the same class are hoisted into private const string declarations and every usage is replaced with the constant. Empty literals in executable code become string.Empty.

USE WHEN:
- Cleaning up a file that repeats the same literal in several places
- Preparing a class for localization or configuration extraction
- Normalizing "" to string.Empty before a code review

INTERPRETING RESULTS:
- text is the complete rewritten file; whitespace and comments are preserved
- constants_created = 0 and replacements = 0 means the file was already clean
- Existing const fields are reused instead of duplicated
- Literals inside const fields, parameter defaults, attribute arguments and case labels keep ""
- A syntax error returns the input unchanged with an error message

METRICS RETURNED:
- text: rewritten source
- stats: constants_created, magic_strings_replaced, empty_strings_replaced
- constants: scope, name, value and line of each new declaration`
}

func describeAnalyze() string {
	return `Reports which C# files under the given paths contain repeated string literals, without modifying anything.

USE WHEN:
- Estimating how much a codebase would change before running hoist
- Finding classes with many repeated literals
- Checking in CI that no new magic strings were introduced

INTERPRETING RESULTS:
- changed = true means hoist would rewrite the file
- files with an error could not be parsed and would be left untouched
- scope_mode recursive lets outer classes see literals of nested classes

METRICS RETURNED:
- files: path, stats, changed flag, constants, error
- summary: total, changed and failed file counts plus aggregate stats`
}
