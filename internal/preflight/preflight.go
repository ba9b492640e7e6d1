package preflight

import (
	"fmt"

	"motionmux/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Target describes what a run is about to touch.
type Target struct {
	InputDir string // directory mode root; empty in single-pair mode
	// WritesInput is set when outputs, overwrites or video deletion land in
	// the input tree.
	WritesInput bool
}

// RunAll executes the checks applicable to cfg and target.
func RunAll(cfg *config.Config, target Target) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: detail})
	}

	if target.InputDir != "" {
		if target.WritesInput {
			results = append(results, CheckDirectoryAccess("Input directory", target.InputDir))
		} else {
			results = append(results, CheckDirectoryReadable("Input directory", target.InputDir))
		}
	}
	if cfg.Output.Directory != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Output.Directory))
	}
	results = append(results, CheckFileLocation("Ledger", cfg.Paths.LedgerPath))
	if cfg.Paths.HistoryPath != "" {
		results = append(results, CheckFileLocation("History journal", cfg.Paths.HistoryPath))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Error summarizes failed results, or returns nil when everything passed.
func Error(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	first := failed[0]
	if len(failed) == 1 {
		return fmt.Errorf("preflight %s: %s", first.Name, first.Detail)
	}
	return fmt.Errorf("preflight %s: %s (and %d more failed checks)", first.Name, first.Detail, len(failed)-1)
}
