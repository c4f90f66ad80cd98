// Package envfilter provides glob-based environment variable filtering
// for gui-replay. It allows deny-listing env var names using path.Match
// glob patterns while exempting gui-replay's own internal variables.
package envfilter

import (
	"path"
	"strings"
)

// internalNames lists env var names that are always exempt from deny
// filtering. These are gui-replay's own control variables.
var internalNames = []string{
	"GUI_REPLAY_SESSION",
	"GUI_REPLAY_TRACE",
	"GUI_REPLAY_COLOR",
	"GUI_REPLAY_HISTORY",
	"GUI_REPLAY_EXITCODE_FILE",
}

// displayNames lists env vars that describe the host display session.
// A sandboxed child must never inherit these; the supervisor sets its
// own DISPLAY and XAUTHORITY after scrubbing.
var displayNames = []string{
	"DISPLAY",
	"XAUTHORITY",
	"WAYLAND_DISPLAY",
	"XDG_SESSION_TYPE",
	"SESSION_MANAGER",
}

// IsDenied returns true if the environment variable name matches any of the
// provided deny-list glob patterns. Uses path.Match for glob matching, which
// handles * wildcards correctly for non-path strings (env var names don't
// contain /). Returns false for invalid patterns (fail-open).
//
// An exempt variable (see IsExempt) is never denied regardless of patterns.
func IsDenied(name string, patterns []string) bool {
	if IsExempt(name) {
		return false
	}
	for _, pattern := range patterns {
		matched, err := path.Match(pattern, name)
		if err != nil {
			// Invalid pattern — skip (fail-open)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// IsExempt returns true if the environment variable name is a gui-replay
// internal variable that must never be filtered. This ensures that deny
// patterns like "*" don't break gui-replay's own operation.
func IsExempt(name string) bool {
	for _, internal := range internalNames {
		if strings.EqualFold(name, internal) {
			return true
		}
	}
	return false
}

// IsDisplayVar returns true if the environment variable name belongs to
// the host display session and must be scrubbed from a sandboxed child.
func IsDisplayVar(name string) bool {
	for _, dv := range displayNames {
		if strings.EqualFold(name, dv) {
			return true
		}
	}
	return false
}
