/*
autosave.go - Debounced persistence of the balance store

DESIGN:
  - One background goroutine reads Store.Changes()
  - A burst of mutations within Debounce becomes a single Save
  - Mutations never wait on persistence; a crash loses at most the last burst
  - Save errors are logged, never returned to mutators

USAGE:
  saver := leave.NewAutosaver(store, blobs, leave.DefaultSnapshotKey, logger)
  saver.Start()
  // ... later
  saver.Stop() // flushes a pending save

SEE ALSO:
  - store.go: Changes(), Save()
*/
package leave

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutosaveDebounce is the quiet period before a save.
const DefaultAutosaveDebounce = 500 * time.Millisecond

// Autosaver persists the store shortly after it changes.
type Autosaver struct {
	Store    *Store
	Blobs    BlobStore
	Key      string
	Debounce time.Duration
	// SaveTimeout bounds one Put call.
	SaveTimeout time.Duration

	logger  *slog.Logger
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewAutosaver creates an autosaver with default timings.
func NewAutosaver(store *Store, blobs BlobStore, key string, logger *slog.Logger) *Autosaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		Store:       store,
		Blobs:       blobs,
		Key:         key,
		Debounce:    DefaultAutosaveDebounce,
		SaveTimeout: 10 * time.Second,
		logger:      logger,
	}
}

// Start begins watching for changes. Calling Start twice is a no-op.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return
	}
	a.running = true
	a.stop = make(chan struct{})
	a.wg.Add(1)

	go a.run()

	a.logger.Info("autosave started", slog.Duration("debounce", a.Debounce), slog.String("key", a.Key))
}

// Stop ends the goroutine, saving first if a change is pending.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("autosave stopped")
}

func (a *Autosaver) run() {
	defer a.wg.Done()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending bool
	)

	for {
		select {
		case <-a.Store.Changes():
			pending = true
			if timer == nil {
				timer = time.NewTimer(a.Debounce)
			} else {
				timer.Reset(a.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			pending = false
			a.save()

		case <-a.stop:
			if timer != nil {
				timer.Stop()
			}
			// Drain a signal that raced with stop
			select {
			case <-a.Store.Changes():
				pending = true
			default:
			}
			if pending {
				a.save()
			}
			return
		}
	}
}

func (a *Autosaver) save() {
	ctx, cancel := context.WithTimeout(context.Background(), a.SaveTimeout)
	defer cancel()

	if err := a.Store.Save(ctx, a.Blobs, a.Key); err != nil {
		a.logger.Error("autosave failed", slog.Any("error", err))
		return
	}
	a.logger.Debug("autosaved planner data", slog.String("key", a.Key))
}
