// Package replay re-synthesizes recorded scenarios against a live
// application and detects divergence.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gui-replay/gui-replay/internal/locator"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree"
)

// Injector is the input-injection side of the toolkit glue: it synthesizes
// one recorded event against a resolved live widget.
type Injector interface {
	Inject(target uitree.Node, ev scenario.Event) error
}

// Default inter-event wait bounds. The recorded gap is clamped into
// [MinWait, MaxWait] so real-time drift neither flakes nor crawls.
const (
	DefaultMinWait = 10 * time.Millisecond
	DefaultMaxWait = 2 * time.Second
)

// Options configures a replay run.
type Options struct {
	// AbortOnFailure stops the run at the first resolution failure instead
	// of continuing with subsequent events (the default).
	AbortOnFailure bool

	MinWait time.Duration
	MaxWait time.Duration

	// Trace receives a per-event trace line when non-nil.
	Trace io.Writer
}

// Status is the overall outcome of a replay.
type Status string

// Replay outcomes.
const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Failure records one event whose target could not be resolved.
type Failure struct {
	EventIndex int
	Address    scenario.Address
	Reason     locator.Reason
	Detail     string
}

// Result is the outcome of a replay run. Status is StatusFail if any
// Failure occurred, even when every other event replayed.
type Result struct {
	Status   Status
	Injected int
	Failures []Failure
	Aborted  bool
	Duration time.Duration
}

// Engine replays scenarios through an injector.
type Engine struct {
	injector Injector
	opts     Options
}

// NewEngine returns an engine with defaulted wait bounds.
func NewEngine(injector Injector, opts Options) (*Engine, error) {
	if injector == nil {
		return nil, errors.New("injector must be non-nil")
	}
	if opts.MinWait == 0 {
		opts.MinWait = DefaultMinWait
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.MinWait < 0 || opts.MaxWait < opts.MinWait {
		return nil, fmt.Errorf("invalid wait bounds: min %v, max %v", opts.MinWait, opts.MaxWait)
	}
	if opts.Trace == nil && IsTraceEnabled(os.Getenv(TraceEnvVar)) {
		opts.Trace = os.Stderr
	}
	return &Engine{injector: injector, opts: opts}, nil
}

// Run replays the scenario's events in recorded order against the tree
// rooted at root. Resolution failures are aggregated into the result per
// the configured policy; injector errors and context cancellation abort
// the run with an error.
func (e *Engine) Run(ctx context.Context, scn *scenario.Scenario, root uitree.Node) (*Result, error) {
	if root == nil {
		return nil, errors.New("root must be non-nil")
	}

	start := time.Now()
	result := &Result{Status: StatusPass}

	for i := range scn.Events {
		ev := &scn.Events[i]

		target, err := e.resolve(root, ev.Target)
		if err != nil {
			var rerr *locator.ResolutionError
			if !errors.As(err, &rerr) {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			result.Failures = append(result.Failures, Failure{
				EventIndex: i,
				Address:    ev.Target,
				Reason:     rerr.Reason,
				Detail:     rerr.Detail,
			})
			result.Status = StatusFail
			e.trace(i, ev, "FAIL "+string(rerr.Reason))
			if e.opts.AbortOnFailure {
				result.Aborted = true
				break
			}
		} else {
			if err := e.injector.Inject(target, *ev); err != nil {
				result.Duration = time.Since(start)
				return result, fmt.Errorf("event %d: injection failed: %w", i, err)
			}
			result.Injected++
			e.trace(i, ev, "ok")
		}

		if i+1 < len(scn.Events) {
			gap := time.Duration(scn.Events[i+1].OffsetMS-ev.OffsetMS) * time.Millisecond
			if err := e.wait(ctx, clamp(gap, e.opts.MinWait, e.opts.MaxWait)); err != nil {
				result.Duration = time.Since(start)
				return result, err
			}
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// resolve maps an address to a live widget; the empty address is the root.
func (e *Engine) resolve(root uitree.Node, addr scenario.Address) (uitree.Node, error) {
	if len(addr) == 0 {
		return root, nil
	}
	return locator.Resolve(root, addr)
}

// wait sleeps for d or until the context is canceled.
func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// trace emits one event trace line when tracing is enabled.
func (e *Engine) trace(index int, ev *scenario.Event, outcome string) {
	if e.opts.Trace == nil {
		return
	}
	WriteTraceEvent(e.opts.Trace, index, ev, outcome)
}

// clamp bounds d into [lo, hi].
func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
