package locator

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/gui-replay/gui-replay/internal/scenario"
)

// colorMode controls ANSI color output in error messages.
type colorMode int

const (
	colorAuto colorMode = iota
	colorOn
	colorOff
)

// resolveColor determines whether to emit ANSI color codes.
// Priority: GUI_REPLAY_COLOR env > NO_COLOR env > auto-detect stderr TTY.
func resolveColor() colorMode {
	if v := os.Getenv("GUI_REPLAY_COLOR"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return colorOn
		case "0", "false", "no", "off":
			return colorOff
		}
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return colorOff
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return colorOn
	}
	return colorOff
}

// ANSI escape helpers; return the string unchanged when color is off.
func red(s string, c colorMode) string {
	if c == colorOn {
		return "\033[31m" + s + "\033[0m"
	}
	return s
}

func green(s string, c colorMode) string {
	if c == colorOn {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

func bold(s string, c colorMode) string {
	if c == colorOn {
		return "\033[1m" + s + "\033[0m"
	}
	return s
}

// FormatResolutionError renders a ResolutionError for human output,
// highlighting the segment that failed.
func FormatResolutionError(err *ResolutionError) string {
	color := resolveColor()
	var sb strings.Builder

	sb.WriteString(bold(fmt.Sprintf("Cannot resolve widget address (%s):\n", err.Reason), color))
	sb.WriteString("\n")

	for i, seg := range err.Address {
		marker := "  "
		label := describeSegment(seg)
		if i == err.Segment {
			marker = red("→ ", color)
			label = red(label, color)
		} else if i < err.Segment {
			label = green(label, color)
		}
		sb.WriteString(fmt.Sprintf("  %s%s%s\n", strings.Repeat("  ", i), marker, label))
	}

	if len(err.Address) == 0 {
		sb.WriteString("  <root>\n")
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s\n", err.Detail))

	return sb.String()
}

// describeSegment renders a single address segment for display.
func describeSegment(seg scenario.Segment) string {
	if seg.Name != "" {
		return fmt.Sprintf("%s(%q)[%d]", seg.Type, seg.Name, seg.Index)
	}
	return fmt.Sprintf("%s[%d]", seg.Type, seg.Index)
}
