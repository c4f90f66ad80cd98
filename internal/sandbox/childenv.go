package sandbox

import (
	"os"
	"strings"

	"github.com/gui-replay/gui-replay/internal/envfilter"
)

// ChildEnv describes the environment adjustments for a sandboxed child.
type ChildEnv struct {
	Display      string // DISPLAY value, e.g. ":10"
	Authority    string // XAUTHORITY file path
	SessionID    string
	ExchangePath string   // exit-code exchange file, exported via ExitCodeEnvVar
	Deny         []string // extra glob patterns to drop from the environment
}

// BuildChildEnv returns a copy of the current process environment with
// host display session vars scrubbed, deny-listed vars removed, and the
// sandbox's own DISPLAY, XAUTHORITY and control variables set. The
// returned slice is suitable for exec.Cmd.Env.
func BuildChildEnv(ce ChildEnv) []string {
	base := os.Environ()
	result := make([]string, 0, len(base)+4)

	for _, env := range base {
		key, _, ok := strings.Cut(env, "=")
		if !ok {
			result = append(result, env)
			continue
		}
		if envfilter.IsDisplayVar(key) {
			continue
		}
		if envfilter.IsDenied(key, ce.Deny) {
			continue
		}
		switch strings.ToUpper(key) {
		case "GUI_REPLAY_SESSION", ExitCodeEnvVar:
			// Replaced below; a stale inherited value must not leak in.
			continue
		}
		result = append(result, env)
	}

	result = append(result, "DISPLAY="+ce.Display)
	result = append(result, "XAUTHORITY="+ce.Authority)
	result = append(result, "GUI_REPLAY_SESSION="+ce.SessionID)
	if ce.ExchangePath != "" {
		result = append(result, ExitCodeEnvVar+"="+ce.ExchangePath)
	}
	return result
}
