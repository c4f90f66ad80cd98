// Package report provides structured output types and formatters for
// gui-replay replay results (text, JSON, JUnit XML).
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gui-replay/gui-replay/internal/replay"
	"github.com/gui-replay/gui-replay/internal/scenario"
)

// Report represents the structured outcome of one replay run.
type Report struct {
	Scenario    string        `json:"scenario"`
	EntryPoint  string        `json:"entry_point"`
	Status      string        `json:"status"`
	TotalEvents int           `json:"total_events"`
	Injected    int           `json:"injected"`
	Failures    int           `json:"failures"`
	Aborted     bool          `json:"aborted,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
	Events      []EventResult `json:"events"`
}

// EventResult represents the replay status of a single event.
type EventResult struct {
	Index    int    `json:"index"`
	OffsetMS int64  `json:"offset_ms"`
	Kind     string `json:"kind"`
	Address  string `json:"address"`
	Passed   bool   `json:"passed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Build constructs a Report from a scenario and its replay result.
// Events after an abort are marked skipped.
func Build(scn *scenario.Scenario, res *replay.Result) *Report {
	report := &Report{
		Scenario:    scn.Meta.Name,
		EntryPoint:  scn.Meta.EntryPoint,
		Status:      string(res.Status),
		TotalEvents: len(scn.Events),
		Injected:    res.Injected,
		Failures:    len(res.Failures),
		Aborted:     res.Aborted,
		DurationMS:  res.Duration.Milliseconds(),
		Events:      make([]EventResult, len(scn.Events)),
	}

	failureByIndex := make(map[int]*replay.Failure, len(res.Failures))
	for i := range res.Failures {
		failureByIndex[res.Failures[i].EventIndex] = &res.Failures[i]
	}

	lastAttempted := len(scn.Events) - 1
	if res.Aborted && len(res.Failures) > 0 {
		lastAttempted = res.Failures[len(res.Failures)-1].EventIndex
	}

	for i := range scn.Events {
		ev := &scn.Events[i]
		er := EventResult{
			Index:    i,
			OffsetMS: ev.OffsetMS,
			Kind:     string(ev.Kind),
			Address:  ev.Target.String(),
			Passed:   true,
		}
		if f, ok := failureByIndex[i]; ok {
			er.Passed = false
			er.Reason = string(f.Reason)
			er.Detail = f.Detail
		} else if i > lastAttempted {
			er.Passed = false
			er.Skipped = true
			er.Reason = "not-attempted"
		}
		report.Events[i] = er
	}

	return report
}

// Passed reports whether the replay passed.
func (r *Report) Passed() bool {
	return r.Status == string(replay.StatusPass)
}

// FormatText writes a human-readable summary to the writer.
func FormatText(w io.Writer, r *Report) error {
	status := "PASS"
	if !r.Passed() {
		status = "FAIL"
	}
	_, _ = fmt.Fprintf(w, "gui-replay: %s: scenario %q (%d events, %d injected, %d failures, %dms)\n",
		status, r.Scenario, r.TotalEvents, r.Injected, r.Failures, r.DurationMS)

	for _, ev := range r.Events {
		switch {
		case ev.Skipped:
			_, _ = fmt.Fprintf(w, "  - event %d (%s %s): skipped after abort\n",
				ev.Index, ev.Kind, ev.Address)
		case !ev.Passed:
			_, _ = fmt.Fprintf(w, "  ✗ event %d (%s %s): %s: %s\n",
				ev.Index, ev.Kind, ev.Address, ev.Reason, ev.Detail)
		}
	}

	if r.Aborted {
		_, _ = fmt.Fprintln(w, "  replay aborted at first resolution failure (--abort-on-failure)")
	}
	return nil
}

// FormatJSON writes the report as compact JSON to the writer.
func FormatJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
