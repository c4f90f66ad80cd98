// Package driver is the boundary between gui-replay and the applications
// it records and replays. An entry point is a registered name mapping to
// a launch function; the returned App exposes the live widget tree plus
// event capture and injection.
package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gui-replay/gui-replay/internal/recorder"
	"github.com/gui-replay/gui-replay/internal/replay"
	"github.com/gui-replay/gui-replay/internal/uitree"
)

// App is a launched application under test.
type App interface {
	// Root returns the current widget tree root.
	Root() uitree.Node
	// Capture returns the provider used to observe user interaction.
	Capture() recorder.CaptureProvider
	// Injector returns the sink used to deliver replayed events.
	Injector() replay.Injector
	// Wait blocks until the application exits.
	Wait() error
	// Terminate asks the application to shut down.
	Terminate()
}

// LaunchFunc starts the application for one record or replay session.
type LaunchFunc func(ctx context.Context) (App, error)

// UnknownEntryPointError distinguishes a bad entry-point name from other
// launch failures; the CLI maps it to a usage error.
type UnknownEntryPointError struct {
	Name string
}

func (e *UnknownEntryPointError) Error() string {
	return fmt.Sprintf("unknown entry point %q", e.Name)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]LaunchFunc)
)

// Register makes an entry point available under name. Registering a
// duplicate name panics; entry points are wired at program init and a
// collision is a programming error.
func Register(name string, launch LaunchFunc) {
	if name == "" {
		panic("driver: empty entry point name")
	}
	if launch == nil {
		panic("driver: nil launch function")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("driver: entry point %q registered twice", name))
	}
	registry[name] = launch
}

// Resolve returns the launch function for name.
func Resolve(name string) (LaunchFunc, error) {
	mu.RLock()
	defer mu.RUnlock()
	launch, ok := registry[name]
	if !ok {
		return nil, &UnknownEntryPointError{Name: name}
	}
	return launch, nil
}

// Names returns the registered entry point names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes an entry point. Exists for tests; production entry
// points stay registered for the process lifetime.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registry, name)
}
