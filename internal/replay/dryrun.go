package replay

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gui-replay/gui-replay/internal/locator"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree"
)

// DryRunReport previews how a scenario would resolve against a live tree
// without injecting anything. Not persisted; used only for display.
type DryRunReport struct {
	ScenarioName string
	EntryPoint   string
	TotalEvents  int
	Events       []DryRunEvent
	Unresolved   int
}

// DryRunEvent contains per-event information for dry-run display.
type DryRunEvent struct {
	Index    int
	OffsetMS int64
	Kind     scenario.EventKind
	Address  string
	Resolved bool
	Reason   string
}

// BuildDryRunReport resolves every event target against the tree and
// collects the outcomes.
func BuildDryRunReport(scn *scenario.Scenario, root uitree.Node) *DryRunReport {
	report := &DryRunReport{
		ScenarioName: scn.Meta.Name,
		EntryPoint:   scn.Meta.EntryPoint,
		TotalEvents:  len(scn.Events),
		Events:       make([]DryRunEvent, len(scn.Events)),
	}

	for i := range scn.Events {
		ev := &scn.Events[i]
		entry := DryRunEvent{
			Index:    i,
			OffsetMS: ev.OffsetMS,
			Kind:     ev.Kind,
			Address:  ev.Target.String(),
			Resolved: true,
		}
		if len(ev.Target) > 0 {
			if _, err := locator.Resolve(root, ev.Target); err != nil {
				entry.Resolved = false
				var rerr *locator.ResolutionError
				if errors.As(err, &rerr) {
					entry.Reason = string(rerr.Reason)
				} else {
					entry.Reason = err.Error()
				}
				report.Unresolved++
			}
		}
		report.Events[i] = entry
	}

	return report
}

// FormatDryRunReport writes a human-readable dry-run report to the writer.
func FormatDryRunReport(report *DryRunReport, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "Scenario: %s\n", report.ScenarioName)
	_, _ = fmt.Fprintf(w, "Entry point: %s\n", report.EntryPoint)
	_, _ = fmt.Fprintf(w, "Events: %d | Unresolved: %d\n", report.TotalEvents, report.Unresolved)

	sep := strings.Repeat("─", 72)
	_, _ = fmt.Fprintf(w, "\n%s\n", sep)
	_, _ = fmt.Fprintf(w, " %-4s %-9s %-16s %s\n", "#", "Offset", "Kind", "Target")
	_, _ = fmt.Fprintf(w, "%s\n", sep)

	for _, ev := range report.Events {
		_, _ = fmt.Fprintf(w, " %-4d %-9s %-16s %s\n",
			ev.Index+1, fmt.Sprintf("%dms", ev.OffsetMS), ev.Kind, truncate(ev.Address, 40))
		if !ev.Resolved {
			_, _ = fmt.Fprintf(w, "     ✗ unresolved: %s\n", ev.Reason)
		}
	}

	_, _ = fmt.Fprintf(w, "%s\n", sep)

	if report.Unresolved == 0 {
		_, _ = fmt.Fprintln(w, "✓ All event targets resolve against the live tree")
	} else {
		_, _ = fmt.Fprintf(w, "✗ %d of %d event targets failed to resolve\n",
			report.Unresolved, report.TotalEvents)
	}

	return nil
}

// truncate truncates a string to maxLen, adding "..." if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
