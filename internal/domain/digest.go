package domain

import "time"

// DigestSummary is the aggregate built once per run and consumed by the
// renderer. Documents are ordered by archived time descending (id ascending
// on ties); Highlights by created time ascending, grouped by the order in
// which each parent document first appears.
type DigestSummary struct {
	DocumentCount       int
	TotalWords          int
	HighlightCount      int
	AvgWordsPerDocument float64
	AvgHoursToArchive   float64
	ByCategory          map[string]int
	BySource            map[string]int
	ByLocation          map[string]int
	Documents           []Document
	Highlights          []Highlight
}

// CommitResult describes the outcome of one file upsert. Unchanged is set
// when the target already held identical bytes and no commit was made.
type CommitResult struct {
	SHA       string
	Path      string
	Unchanged bool
}

// RunResult holds statistics about one digest run.
type RunResult struct {
	Window     DateWindow
	Documents  int
	Highlights int
	TotalWords int
	Path       string
	CommitSHA  string
	Unchanged  bool
	Duration   time.Duration
}
