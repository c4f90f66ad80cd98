// Package scenario provides types and functions for loading, validating,
// and saving gui-replay scenario files.
package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatVersion is the scenario file format version this build reads and writes.
const FormatVersion = 1

// EventKind enumerates the discrete input primitives a scenario can contain.
type EventKind string

// Recognized event kinds.
const (
	PointerPress   EventKind = "pointer-press"
	PointerRelease EventKind = "pointer-release"
	PointerMove    EventKind = "pointer-move"
	KeyPress       EventKind = "key-press"
	KeyRelease     EventKind = "key-release"
	TextInput      EventKind = "text-input"
	WindowClose    EventKind = "window-close"
)

// Kinds lists every recognized event kind.
func Kinds() []EventKind {
	return []EventKind{
		PointerPress, PointerRelease, PointerMove,
		KeyPress, KeyRelease, TextInput, WindowClose,
	}
}

// knownKind reports whether k is one of the recognized event kinds.
func knownKind(k EventKind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Scenario represents a complete recorded interaction log loaded from a YAML file.
// Once persisted a scenario is immutable; replay treats it as read-only.
type Scenario struct {
	Version int     `yaml:"version"`
	Meta    Meta    `yaml:"meta"`
	Events  []Event `yaml:"events"`
}

// Validate checks that the scenario is internally consistent.
func (s *Scenario) Validate() error {
	if s.Version != FormatVersion {
		return fmt.Errorf("version: expected %d, got %d", FormatVersion, s.Version)
	}
	if err := s.Meta.Validate(); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	for i := range s.Events {
		if err := s.Events[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if i > 0 && !before(&s.Events[i-1], &s.Events[i]) {
			return fmt.Errorf("event %d: out of order (offset %dms seq %d after offset %dms seq %d)",
				i, s.Events[i].OffsetMS, s.Events[i].Seq, s.Events[i-1].OffsetMS, s.Events[i-1].Seq)
		}
	}
	return nil
}

// Duration returns the offset of the last event, i.e. the recorded length
// of the scenario. Zero for an empty scenario.
func (s *Scenario) Duration() time.Duration {
	if len(s.Events) == 0 {
		return 0
	}
	return time.Duration(s.Events[len(s.Events)-1].OffsetMS) * time.Millisecond
}

// before reports whether event a is ordered strictly before event b.
// Events are totally ordered by offset, ties broken by recording sequence.
func before(a, b *Event) bool {
	if a.OffsetMS != b.OffsetMS {
		return a.OffsetMS < b.OffsetMS
	}
	return a.Seq < b.Seq
}

// Meta contains scenario metadata: identification, the target entry point,
// and the display geometry used during recording.
type Meta struct {
	Name       string    `yaml:"name"`
	EntryPoint string    `yaml:"entry_point"`
	RecordedAt time.Time `yaml:"recorded_at"`
	Resolution string    `yaml:"resolution,omitempty"`
}

// Validate checks that the meta section is valid.
func (m *Meta) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name must be non-empty")
	}
	if strings.TrimSpace(m.EntryPoint) == "" {
		return errors.New("entry_point must be non-empty")
	}
	if m.Resolution != "" {
		if _, _, err := ParseResolution(m.Resolution); err != nil {
			return fmt.Errorf("resolution: %w", err)
		}
	}
	return nil
}

// Segment is one level of a widget address: the declared type name, the
// explicitly-set object name if any, and the sibling-order index among
// same-type siblings at that tree level.
type Segment struct {
	Type  string `yaml:"type"`
	Name  string `yaml:"name,omitempty"`
	Index int    `yaml:"index"`
}

// Validate checks that the segment is valid.
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.Type) == "" {
		return errors.New("type must be non-empty")
	}
	if s.Index < 0 {
		return errors.New("index must be non-negative")
	}
	return nil
}

// Address is a structural path identifying a widget within a live tree.
// Segments are ordered from the root's children down to the target.
// An empty address targets the tree root itself (used by key events
// recorded without an explicit widget target).
type Address []Segment

// Validate checks every segment of the address.
func (a Address) Validate() error {
	for i := range a {
		if err := a[i].Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// String renders the address as a readable path, e.g.
// `Window > Button("Submit")[0]`. The empty address renders as "<root>".
func (a Address) String() string {
	if len(a) == 0 {
		return "<root>"
	}
	parts := make([]string, len(a))
	for i, seg := range a {
		if seg.Name != "" {
			parts[i] = fmt.Sprintf("%s(%q)[%d]", seg.Type, seg.Name, seg.Index)
		} else {
			parts[i] = fmt.Sprintf("%s[%d]", seg.Type, seg.Index)
		}
	}
	return strings.Join(parts, " > ")
}

// Equal reports whether two addresses are segment-for-segment identical.
func (a Address) Equal(b Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Point is a position relative to the target widget's bounds.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Event is one immutable recorded input primitive. The payload fields are
// kind-specific: pointer kinds carry Pos/Button, key kinds carry Key,
// text-input carries Text.
type Event struct {
	OffsetMS  int64     `yaml:"offset_ms"`
	Seq       int       `yaml:"seq"`
	Kind      EventKind `yaml:"kind"`
	Target    Address   `yaml:"target,omitempty"`
	Pos       *Point    `yaml:"pos,omitempty"`
	Button    string    `yaml:"button,omitempty"`
	Key       string    `yaml:"key,omitempty"`
	Text      string    `yaml:"text,omitempty"`
	Modifiers []string  `yaml:"modifiers,omitempty"`
}

// Validate checks that the event carries the payload its kind requires.
func (e *Event) Validate() error {
	if e.OffsetMS < 0 {
		return errors.New("offset_ms must be non-negative")
	}
	if e.Seq < 0 {
		return errors.New("seq must be non-negative")
	}
	if !knownKind(e.Kind) {
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if err := e.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	switch e.Kind {
	case PointerPress, PointerRelease, PointerMove:
		if e.Pos == nil {
			return fmt.Errorf("%s requires pos", e.Kind)
		}
	case KeyPress, KeyRelease:
		if e.Key == "" {
			return fmt.Errorf("%s requires key", e.Kind)
		}
	case TextInput:
		if e.Text == "" {
			return errors.New("text-input requires text")
		}
	}
	return nil
}

// ParseResolution parses a "WxH" geometry string into width and height.
func ParseResolution(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WxH, got %q", s)
	}
	width, err = strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return width, height, nil
}
