package envfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDenied_PrefixWildcard(t *testing.T) {
	patterns := []string{"AWS_*"}
	assert.True(t, IsDenied("AWS_SECRET_ACCESS_KEY", patterns))
	assert.True(t, IsDenied("AWS_REGION", patterns))
	assert.False(t, IsDenied("GITHUB_TOKEN", patterns))
	assert.False(t, IsDenied("aws_secret", patterns)) // case-sensitive
}

func TestIsDenied_SuffixWildcard(t *testing.T) {
	patterns := []string{"*_TOKEN"}
	assert.True(t, IsDenied("GITHUB_TOKEN", patterns))
	assert.True(t, IsDenied("NPM_TOKEN", patterns))
	assert.False(t, IsDenied("TOKEN_NAME", patterns))
}

func TestIsDenied_WildcardAll(t *testing.T) {
	patterns := []string{"*"}
	assert.True(t, IsDenied("ANY_VAR", patterns))
	assert.True(t, IsDenied("x", patterns))
	// Internal vars are exempt even with wildcard-all
	assert.False(t, IsDenied("GUI_REPLAY_SESSION", patterns))
	assert.False(t, IsDenied("GUI_REPLAY_TRACE", patterns))
}

func TestIsDenied_MultiplePatterns(t *testing.T) {
	patterns := []string{"AWS_*", "GITHUB_TOKEN", "*_SECRET"}
	assert.True(t, IsDenied("AWS_REGION", patterns))
	assert.True(t, IsDenied("GITHUB_TOKEN", patterns))
	assert.True(t, IsDenied("DB_SECRET", patterns))
	assert.False(t, IsDenied("HOME", patterns))
}

func TestIsDenied_EmptyPatterns(t *testing.T) {
	assert.False(t, IsDenied("ANY_VAR", nil))
	assert.False(t, IsDenied("ANY_VAR", []string{}))
}

func TestIsDenied_InvalidPattern(t *testing.T) {
	// path.Match returns error for malformed patterns like `[`
	patterns := []string{"[invalid"}
	assert.False(t, IsDenied("ANY_VAR", patterns)) // fail-open
}

func TestIsDenied_InvalidPatternWithValidPattern(t *testing.T) {
	patterns := []string{"[invalid", "AWS_*"}
	assert.True(t, IsDenied("AWS_KEY", patterns))
	assert.False(t, IsDenied("HOME", patterns))
}

func TestIsExempt_InternalVars(t *testing.T) {
	assert.True(t, IsExempt("GUI_REPLAY_SESSION"))
	assert.True(t, IsExempt("GUI_REPLAY_TRACE"))
	assert.True(t, IsExempt("GUI_REPLAY_COLOR"))
	assert.True(t, IsExempt("GUI_REPLAY_HISTORY"))
	assert.True(t, IsExempt("GUI_REPLAY_EXITCODE_FILE"))
}

func TestIsExempt_CaseInsensitive(t *testing.T) {
	assert.True(t, IsExempt("gui_replay_session"))
	assert.True(t, IsExempt("Gui_Replay_Trace"))
}

func TestIsExempt_NonInternalVars(t *testing.T) {
	assert.False(t, IsExempt("HOME"))
	assert.False(t, IsExempt("AWS_SECRET"))
	assert.False(t, IsExempt("GUI_REPLAY_CUSTOM"))
	assert.False(t, IsExempt(""))
}

func TestIsDenied_ExemptVarsNeverDenied(t *testing.T) {
	patterns := []string{"*"}
	for _, name := range internalNames {
		assert.False(t, IsDenied(name, patterns), "internal var %s should be exempt", name)
	}
}

func TestIsDisplayVar(t *testing.T) {
	assert.True(t, IsDisplayVar("DISPLAY"))
	assert.True(t, IsDisplayVar("XAUTHORITY"))
	assert.True(t, IsDisplayVar("WAYLAND_DISPLAY"))
	assert.False(t, IsDisplayVar("HOME"))
	assert.False(t, IsDisplayVar("GUI_REPLAY_SESSION"))
}

func TestIsDenied_EmptyName(t *testing.T) {
	patterns := []string{"*"}
	// Empty string matches * but is not exempt
	assert.True(t, IsDenied("", patterns))
}
