package install

// Outcome is the per-entry result of one manifest step
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// EntryResult records the outcome of one manifest entry
type EntryResult struct {
	Path    string
	Outcome Outcome
	Err     string
}

// Result summarizes an install run. It is created per run and discarded;
// nothing in it is persisted.
type Result struct {
	Dirs      []EntryResult
	Files     []EntryResult
	Shortcuts []EntryResult

	// Launched reports whether the post-install command was started
	Launched  bool
	LaunchErr string

	// Fatal is set when a directory-creation failure aborted the run
	Fatal error
}

// Failed returns every entry that failed, in execution order
func (r *Result) Failed() []EntryResult {
	var out []EntryResult
	for _, list := range [][]EntryResult{r.Dirs, r.Files, r.Shortcuts} {
		for _, e := range list {
			if e.Outcome == OutcomeFailed {
				out = append(out, e)
			}
		}
	}
	return out
}

// Summary returns the per-outcome entry counts
func (r *Result) Summary() (succeeded, skipped, failed int) {
	for _, list := range [][]EntryResult{r.Dirs, r.Files, r.Shortcuts} {
		for _, e := range list {
			switch e.Outcome {
			case OutcomeSucceeded:
				succeeded++
			case OutcomeSkipped:
				skipped++
			case OutcomeFailed:
				failed++
			}
		}
	}
	return succeeded, skipped, failed
}

// OK reports whether the run completed without fatal or per-entry failures.
// The caller decides whether partial failure is acceptable.
func (r *Result) OK() bool {
	return r.Fatal == nil && len(r.Failed()) == 0
}
