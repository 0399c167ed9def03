// Package analyzer holds the contract shared by batch analyzers and the
// progress plumbing that connects them to the CLI.
package analyzer

import "context"

// FileAnalyzer runs over a set of source files.
type FileAnalyzer[T any] interface {
	// Analyze processes files and returns the combined result. Progress is
	// reported through a Tracker carried by ctx, if any.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases resources held by the analyzer.
	Close()
}
