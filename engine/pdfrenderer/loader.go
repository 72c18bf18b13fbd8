package pdfrenderer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// LoaderState is the lifecycle state of the shared rendering library
type LoaderState string

const (
	StateUnloaded LoaderState = "unloaded"
	StateLoading  LoaderState = "loading"
	StateLoaded   LoaderState = "loaded"
)

// Loader owns the lazily initialized rendering library. At most one load is
// in flight at a time; concurrent callers join it instead of starting another.
// The loaded library is cached until Reset.
type Loader struct {
	load LoadFunc

	mu       sync.Mutex
	current  *libraryHandle
	call     *loadCall
	loads    int
	lastUsed time.Time
}

type loadCall struct {
	done    chan struct{}
	waiters int
	handle  *libraryHandle
	err     error
}

// libraryHandle counts the conversions using a library so a retired library
// is only closed once the last of them releases it. Guarded by Loader.mu.
type libraryHandle struct {
	lib     Library
	refs    int
	retired bool
	closed  bool
}

// NewLoader returns an unloaded Loader that initializes through load
func NewLoader(load LoadFunc) *Loader {
	return &Loader{load: load}
}

// Acquire returns the loaded library, loading it or waiting for the in-flight
// load first. The caller must call release once done with the library.
func (l *Loader) Acquire(ctx context.Context) (Library, func(), error) {
	l.mu.Lock()
	l.lastUsed = time.Now()
	if h := l.current; h != nil {
		h.refs++
		l.mu.Unlock()
		return h.lib, l.releaser(h), nil
	}
	c := l.call
	if c == nil {
		c = &loadCall{done: make(chan struct{})}
		l.call = c
		l.loads++
		Logger.Debug("Starting rendering library load", "load", l.loads)
		go l.run(ctx, c)
	}
	c.waiters++
	l.mu.Unlock()

	<-c.done
	if c.err != nil {
		return nil, nil, c.err
	}
	return c.handle.lib, l.releaser(c.handle), nil
}

// run performs one load and publishes it to every waiter of c. The load is
// detached from the first caller's cancellation since others may be waiting.
func (l *Loader) run(ctx context.Context, c *loadCall) {
	lib, err := l.load(context.WithoutCancel(ctx))

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(c.done)

	stale := l.call != c
	if !stale {
		l.call = nil
	}
	if err != nil {
		c.err = fmt.Errorf("%w: %w", ErrLibraryLoad, err)
		Logger.Error("Rendering library load failed", "error", err)
		return
	}
	// every waiter already holds a reference
	c.handle = &libraryHandle{lib: lib, refs: c.waiters, retired: stale}
	if stale {
		Logger.Info("Rendering library loaded after reset, not caching it")
		return
	}
	l.current = c.handle
	Logger.Info("Rendering library loaded")
}

func (l *Loader) releaser(h *libraryHandle) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			h.refs--
			lib := l.takeIfClosable(h)
			l.mu.Unlock()
			closeLibrary(lib)
		})
	}
}

// takeIfClosable marks a retired, unused handle closed and returns its
// library. Must hold l.mu.
func (l *Loader) takeIfClosable(h *libraryHandle) Library {
	if !h.retired || h.refs > 0 || h.closed {
		return nil
	}
	h.closed = true
	return h.lib
}

// Preload loads the library if it is not loaded yet, or waits for the
// in-flight load.
func (l *Loader) Preload(ctx context.Context) error {
	_, release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	release()
	return nil
}

// Reset forgets the cached library and any in-flight load so the next
// Acquire initializes afresh. Conversions already holding the old library
// keep it until they release it.
func (l *Loader) Reset() {
	l.mu.Lock()
	var lib Library
	if h := l.current; h != nil {
		h.retired = true
		lib = l.takeIfClosable(h)
		l.current = nil
	}
	l.call = nil
	l.mu.Unlock()
	closeLibrary(lib)
	Logger.Info("Rendering library reset")
}

// State reports the current lifecycle state
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.current != nil:
		return StateLoaded
	case l.call != nil:
		return StateLoading
	default:
		return StateUnloaded
	}
}

// IsLoaded reports whether the library is cached
func (l *Loader) IsLoaded() bool {
	return l.State() == StateLoaded
}

// IsLoading reports whether a load is in flight
func (l *Loader) IsLoading() bool {
	return l.State() == StateLoading
}

// Loads returns how many underlying loads have been started
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// IdleFor reports how long ago the library was last acquired. It is zero
// when the library is not loaded.
func (l *Loader) IdleFor() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return 0
	}
	return time.Since(l.lastUsed)
}

func closeLibrary(lib Library) {
	closer, ok := lib.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		Logger.Warn("Failed to close rendering library", "error", err)
	}
}
