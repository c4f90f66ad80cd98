package replay

import (
	"fmt"
	"io"
	"strings"

	"github.com/gui-replay/gui-replay/internal/scenario"
)

// TraceEnvVar is the environment variable name for enabling trace mode.
const TraceEnvVar = "GUI_REPLAY_TRACE"

// WriteTraceEvent writes one per-event trace line to the given writer.
func WriteTraceEvent(w io.Writer, index int, ev *scenario.Event, outcome string) {
	_, _ = fmt.Fprintf(w, "[gui-replay] event=%d offset=%dms kind=%s target=%s %s\n",
		index, ev.OffsetMS, ev.Kind, ev.Target, outcome)
}

// IsTraceEnabled returns true if trace mode should be enabled.
func IsTraceEnabled(envValue string) bool {
	switch strings.ToLower(envValue) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
