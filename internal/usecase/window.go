package usecase

import (
	"errors"
	"sort"
	"sync"
	"time"

	"ChainPull/internal/domain/models"
)

// DefaultWindowCapacity bounds the rolling history kept per timeframe.
const DefaultWindowCapacity = 5000

var (
	// ErrDuplicateTimestamp reports an append whose open time does not
	// advance past the last stored candle.
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")

	// ErrLabelNotFound reports a label for an open time no longer (or never)
	// present in the window.
	ErrLabelNotFound = errors.New("label target not found")
)

// WindowStore holds the bounded rolling candle history for one timeframe,
// ordered by open time ascending. The owning pipeline is the only writer;
// the lock exists so HTTP snapshots can read concurrently.
type WindowStore struct {
	mu       sync.RWMutex
	capacity int
	candles  []models.Candle
}

// NewWindowStore creates an empty store. capacity <= 0 uses the default.
func NewWindowStore(capacity int) *WindowStore {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &WindowStore{
		capacity: capacity,
		candles:  make([]models.Candle, 0, capacity),
	}
}

// Seed replaces the store content with backfilled history, keeping only the
// most recent capacity rows and dropping out-of-order duplicates.
func (w *WindowStore) Seed(history []models.Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.candles = w.candles[:0]
	for _, c := range history {
		if n := len(w.candles); n > 0 && !c.OpenTime.After(w.candles[n-1].OpenTime) {
			continue
		}
		w.candles = append(w.candles, c)
	}
	if over := len(w.candles) - w.capacity; over > 0 {
		w.candles = append(w.candles[:0], w.candles[over:]...)
	}
}

// Append adds one closed candle, evicting the oldest entry when the window
// is full. Open times must strictly increase; replayed or stale candles are
// rejected with ErrDuplicateTimestamp and the store is left unchanged.
func (w *WindowStore) Append(c models.Candle) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.candles); n > 0 && !c.OpenTime.After(w.candles[n-1].OpenTime) {
		return ErrDuplicateTimestamp
	}
	w.candles = append(w.candles, c)
	if len(w.candles) > w.capacity {
		w.candles = append(w.candles[:0], w.candles[1:]...)
	}
	return nil
}

// Len returns the number of stored candles.
func (w *WindowStore) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}

// Last returns the most recent stored candle, if any.
func (w *WindowStore) Last() (models.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.candles) == 0 {
		return models.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Snapshot returns a copy of up to limit most recent candles (all when
// limit <= 0).
func (w *WindowStore) Snapshot(limit int) []models.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	start := 0
	if limit > 0 && len(w.candles) > limit {
		start = len(w.candles) - limit
	}
	out := make([]models.Candle, len(w.candles)-start)
	copy(out, w.candles[start:])
	return out
}

// SnapshotWithNext returns a copy of the stored sequence plus one synthetic
// zero-valued row at next. The store itself is never mutated and the
// synthetic row is never persisted.
func (w *WindowStore) SnapshotWithNext(next time.Time) []models.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Candle, len(w.candles), len(w.candles)+1)
	copy(out, w.candles)
	return append(out, models.SyntheticCandle(next))
}

// ApplyLabel sets the label on the candle with the exact open time.
// Reapplying the same label is a state-wise no-op.
func (w *WindowStore) ApplyLabel(openTime time.Time, label interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := sort.Search(len(w.candles), func(i int) bool {
		return !w.candles[i].OpenTime.Before(openTime)
	})
	if i >= len(w.candles) || !w.candles[i].OpenTime.Equal(openTime) {
		return ErrLabelNotFound
	}
	w.candles[i].Label = label
	return nil
}
