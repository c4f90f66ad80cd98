// Package recorder captures observed input primitives into a scenario.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gui-replay/gui-replay/internal/locator"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree"
)

// CapturedEvent is one input primitive observed by the capture provider.
// Target is the live widget the event was delivered to; nil means the
// event had no widget target and is recorded against the tree root.
type CapturedEvent struct {
	Kind      scenario.EventKind
	Target    uitree.Node
	Pos       *scenario.Point
	Button    string
	Key       string
	Text      string
	Modifiers []string
}

// CaptureProvider is the input-capture side of the toolkit glue: it yields
// a stream of discrete input primitives for the lifetime of a subscription.
type CaptureProvider interface {
	// Subscribe registers fn for every observed event and returns an
	// unsubscribe function. fn may be called from the toolkit's dispatch
	// goroutine; the recorder serializes internally.
	Subscribe(fn func(CapturedEvent)) (func(), error)
}

// Options configures a recording session.
type Options struct {
	Name       string
	EntryPoint string
	Resolution string

	// Include limits recording to the listed kinds; empty records all.
	// Exclude drops the listed kinds and wins over Include.
	Include []scenario.EventKind
	Exclude []scenario.EventKind

	// Warnf receives drop warnings; defaults to stderr.
	Warnf func(format string, args ...any)
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("name must be non-empty")
	}
	if strings.TrimSpace(o.EntryPoint) == "" {
		return errors.New("entry point must be non-empty")
	}
	if o.Resolution != "" {
		if _, _, err := scenario.ParseResolution(o.Resolution); err != nil {
			return fmt.Errorf("resolution: %w", err)
		}
	}
	return nil
}

// Recording is a live recording session. It is the only holder of the
// in-progress event log: append-only, single-writer, handed over to the
// caller exactly once via Stop.
type Recording struct {
	mu      sync.Mutex
	root    uitree.Node
	opts    Options
	start   time.Time
	events  []scenario.Event
	dropped int
	unsub   func()
	stopped bool
}

// Start subscribes to the capture provider and begins recording events
// against the tree rooted at root.
func Start(root uitree.Node, provider CaptureProvider, opts Options) (*Recording, error) {
	if root == nil {
		return nil, errors.New("root must be non-nil")
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("recorded-%s", time.Now().UTC().Format("20060102-150405"))
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recording options: %w", err)
	}
	if opts.Warnf == nil {
		opts.Warnf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "gui-replay: "+format+"\n", args...)
		}
	}

	r := &Recording{
		root:  root,
		opts:  opts,
		start: time.Now(),
	}

	unsub, err := provider.Subscribe(r.observe)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to capture provider: %w", err)
	}
	r.unsub = unsub

	return r, nil
}

// observe appends one captured event, resolving its target to an address.
// Events whose target has no resolvable chain to the root are dropped with
// a warning; the recording itself continues.
func (r *Recording) observe(ev CapturedEvent) {
	if !r.wants(ev.Kind) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	var addr scenario.Address
	if ev.Target != nil {
		var err error
		addr, err = locator.AddressOf(r.root, ev.Target)
		if err != nil {
			r.dropped++
			r.opts.Warnf("dropping %s event: %v", ev.Kind, err)
			return
		}
	}

	r.events = append(r.events, scenario.Event{
		OffsetMS:  time.Since(r.start).Milliseconds(),
		Seq:       len(r.events),
		Kind:      ev.Kind,
		Target:    addr,
		Pos:       ev.Pos,
		Button:    ev.Button,
		Key:       ev.Key,
		Text:      ev.Text,
		Modifiers: ev.Modifiers,
	})
}

// wants applies the include/exclude kind filters.
func (r *Recording) wants(kind scenario.EventKind) bool {
	for _, k := range r.opts.Exclude {
		if k == kind {
			return false
		}
	}
	if len(r.opts.Include) == 0 {
		return true
	}
	for _, k := range r.opts.Include {
		if k == kind {
			return true
		}
	}
	return false
}

// Dropped returns the number of events dropped for lack of a resolvable
// ancestor chain.
func (r *Recording) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Len returns the number of events recorded so far.
func (r *Recording) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Stop unsubscribes from the capture provider and returns the finished
// scenario. A Recording can be stopped only once.
func (r *Recording) Stop() (*scenario.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, errors.New("recording already stopped")
	}
	r.stopped = true
	if r.unsub != nil {
		r.unsub()
	}

	scn := &scenario.Scenario{
		Version: scenario.FormatVersion,
		Meta: scenario.Meta{
			Name:       r.opts.Name,
			EntryPoint: r.opts.EntryPoint,
			RecordedAt: r.start.UTC().Truncate(time.Second),
			Resolution: r.opts.Resolution,
		},
		Events: r.events,
	}
	if err := scn.Validate(); err != nil {
		return nil, fmt.Errorf("recorded scenario is invalid: %w", err)
	}
	return scn, nil
}

// ParseKinds converts a comma-separated kind list (as passed on the command
// line) into event kinds, rejecting unknown names.
func ParseKinds(list string) ([]scenario.EventKind, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var kinds []scenario.EventKind
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind := scenario.EventKind(part)
		known := false
		for _, k := range scenario.Kinds() {
			if k == kind {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown event kind %q", part)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
