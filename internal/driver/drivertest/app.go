// Package drivertest provides an in-memory driver.App for tests: a
// treetest-backed widget tree, a hand-cranked capture provider, and an
// injector that records everything delivered to it.
package drivertest

import (
	"context"
	"sync"

	"github.com/gui-replay/gui-replay/internal/driver"
	"github.com/gui-replay/gui-replay/internal/recorder"
	"github.com/gui-replay/gui-replay/internal/replay"
	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree"
	"github.com/gui-replay/gui-replay/internal/uitree/treetest"
)

// Injection is one event delivered to the fake app.
type Injection struct {
	Target uitree.Node
	Event  scenario.Event
}

// App is a fake application under test.
type App struct {
	root *treetest.Node

	mu         sync.Mutex
	subscriber func(recorder.CapturedEvent)
	injections []Injection
	injectErr  error
	terminated bool
	done       chan struct{}
}

// New returns a fake app over the given tree.
func New(root *treetest.Node) *App {
	return &App{root: root, done: make(chan struct{})}
}

// Launch adapts the app to a driver.LaunchFunc for registry tests.
func (a *App) Launch(_ context.Context) (driver.App, error) {
	return a, nil
}

func (a *App) Root() uitree.Node { return a.root }

// Tree returns the mutable fake tree so tests can perturb it.
func (a *App) Tree() *treetest.Node { return a.root }

// Capture returns a provider whose events come from Emit.
func (a *App) Capture() recorder.CaptureProvider { return (*captureProvider)(a) }

// Emit delivers a captured event to the current subscriber, if any.
func (a *App) Emit(ev recorder.CapturedEvent) {
	a.mu.Lock()
	fn := a.subscriber
	a.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// HasSubscriber reports whether a capture subscription is active. Lets
// tests synchronize emits with a recorder started on another goroutine.
func (a *App) HasSubscriber() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.subscriber != nil
}

// Injector returns a sink that records injected events.
func (a *App) Injector() replay.Injector { return (*eventSink)(a) }

// Injections returns everything injected so far.
func (a *App) Injections() []Injection {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Injection, len(a.injections))
	copy(out, a.injections)
	return out
}

// FailInjectionsWith makes subsequent injections return err.
func (a *App) FailInjectionsWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.injectErr = err
}

// Wait blocks until Terminate is called.
func (a *App) Wait() error {
	<-a.done
	return nil
}

// Terminate unblocks Wait. Safe to call more than once.
func (a *App) Terminate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.terminated {
		a.terminated = true
		close(a.done)
	}
}

// Terminated reports whether Terminate was called.
func (a *App) Terminated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.terminated
}

type captureProvider App

func (p *captureProvider) Subscribe(fn func(recorder.CapturedEvent)) (func(), error) {
	a := (*App)(p)
	a.mu.Lock()
	a.subscriber = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		a.subscriber = nil
		a.mu.Unlock()
	}, nil
}

type eventSink App

func (s *eventSink) Inject(target uitree.Node, ev scenario.Event) error {
	a := (*App)(s)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.injectErr != nil {
		return a.injectErr
	}
	a.injections = append(a.injections, Injection{Target: target, Event: ev})
	return nil
}
