// Package progress fans progress and result events out to registered observers.
//
// Observers are invoked synchronously in registration order. An observer that
// panics is logged and skipped; it never interrupts the upload pipeline.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// Broadcaster owns the observer list of one client.
type Broadcaster struct {
	mu        sync.RWMutex
	observers []entry
	nextID    uint64
	logger    *slog.Logger
}

type entry struct {
	id       uint64
	observer s3types.Observer
}

// New creates an empty Broadcaster. A nil logger discards panic reports.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{logger: logger}
}

// Subscribe registers an observer and returns a function that removes it.
// Registering the same pointer observer twice is a no-op that returns the
// existing registration's remover. Function observers cannot be compared,
// so every call with a function adds a new registration.
func (b *Broadcaster) Subscribe(observer s3types.Observer) func() {
	if observer == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if byIdentity(observer) {
		for _, e := range b.observers {
			if byIdentity(e.observer) && e.observer == observer {
				return b.remover(e.id)
			}
		}
	}

	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, entry{id: id, observer: observer})
	return b.remover(id)
}

// SubscribeFunc registers a function observer.
func (b *Broadcaster) SubscribeFunc(fn func(file s3types.FileIdentity, percent float64, result *s3types.Result)) func() {
	if fn == nil {
		return func() {}
	}
	return b.Subscribe(s3types.ProgressFunc(fn))
}

// Len returns the number of registered observers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Emit clamps percent to [0,100] and delivers the event to every observer.
func (b *Broadcaster) Emit(file s3types.FileIdentity, percent float64, result *s3types.Result) {
	percent = Clamp(percent)

	b.mu.RLock()
	snapshot := make([]entry, len(b.observers))
	copy(snapshot, b.observers)
	b.mu.RUnlock()

	for _, e := range snapshot {
		b.dispatch(e, file, percent, result)
	}
}

func (b *Broadcaster) dispatch(e entry, file s3types.FileIdentity, percent float64, result *s3types.Result) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WarnContext(context.Background(), "progress observer panicked",
				"file", file.Name,
				"observer", e.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	e.observer.OnProgress(file, percent, result)
}

func (b *Broadcaster) remover(id uint64) func() {
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.observers {
			if e.id == id {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// Clamp limits percent to [0,100].
func Clamp(percent float64) float64 {
	return min(max(percent, 0), 100)
}

// byIdentity reports whether observers of this dynamic type are compared by
// pointer identity.
func byIdentity(observer s3types.Observer) bool {
	return reflect.TypeOf(observer).Kind() == reflect.Pointer
}
