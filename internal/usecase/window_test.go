package usecase

import (
	"errors"
	"testing"
	"time"

	"ChainPull/internal/domain/models"
)

func minuteCandle(t0 time.Time, i int) models.Candle {
	return models.Candle{
		OpenTime: t0.Add(time.Duration(i) * time.Minute),
		Open:     100 + float64(i),
		High:     101 + float64(i),
		Low:      99 + float64(i),
		Close:    100.5 + float64(i),
	}
}

func TestWindowAppendEvictsOldest(t *testing.T) {
	w := NewWindowStore(3)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := w.Append(minuteCandle(t0, i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if w.Len() != 3 {
		t.Fatalf("expected len 3, got %d", w.Len())
	}
	snap := w.Snapshot(0)
	if !snap[0].OpenTime.Equal(t0.Add(time.Minute)) {
		t.Fatalf("oldest entry not evicted: %v", snap[0].OpenTime)
	}
	if !snap[2].OpenTime.Equal(t0.Add(3 * time.Minute)) {
		t.Fatalf("newest entry missing: %v", snap[2].OpenTime)
	}
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	w := NewWindowStore(50)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 500; i++ {
		if err := w.Append(minuteCandle(t0, i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if w.Len() > 50 {
			t.Fatalf("window exceeded capacity at append %d: %d", i, w.Len())
		}
	}
}

func TestWindowRejectsStaleTimestamps(t *testing.T) {
	w := NewWindowStore(10)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := w.Append(minuteCandle(t0, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(minuteCandle(t0, 1)); !errors.Is(err, ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp for replay, got %v", err)
	}
	if err := w.Append(minuteCandle(t0, 0)); !errors.Is(err, ErrDuplicateTimestamp) {
		t.Fatalf("expected ErrDuplicateTimestamp for older candle, got %v", err)
	}
	if w.Len() != 1 {
		t.Fatalf("store changed on rejected append: %d", w.Len())
	}
}

func TestSeedKeepsMostRecent(t *testing.T) {
	w := NewWindowStore(3)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hist := []models.Candle{
		minuteCandle(t0, 0), minuteCandle(t0, 1), minuteCandle(t0, 1),
		minuteCandle(t0, 2), minuteCandle(t0, 3), minuteCandle(t0, 4),
	}
	w.Seed(hist)
	if w.Len() != 3 {
		t.Fatalf("expected 3 after seed, got %d", w.Len())
	}
	last, ok := w.Last()
	if !ok || !last.OpenTime.Equal(t0.Add(4*time.Minute)) {
		t.Fatalf("unexpected last candle: %v %v", last.OpenTime, ok)
	}
}

func TestSnapshotWithNextDoesNotMutate(t *testing.T) {
	w := NewWindowStore(10)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := w.Append(minuteCandle(t0, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	next := t0.Add(3 * time.Minute)

	s1 := w.SnapshotWithNext(next)
	s2 := w.SnapshotWithNext(next)
	if len(s1) != 4 || len(s2) != 4 {
		t.Fatalf("expected 4 rows incl. synthetic, got %d and %d", len(s1), len(s2))
	}
	if w.Len() != 3 {
		t.Fatalf("snapshot mutated store: len %d", w.Len())
	}
	for i := range s1 {
		if !s1[i].OpenTime.Equal(s2[i].OpenTime) || s1[i].Close != s2[i].Close {
			t.Fatalf("consecutive snapshots differ at %d", i)
		}
	}
	syn := s1[len(s1)-1]
	if !syn.OpenTime.Equal(next) || syn.Open != 0 || syn.Close != 0 {
		t.Fatalf("unexpected synthetic row: %+v", syn)
	}

	// mutating a snapshot must not leak into the store
	s1[0].Label = "tampered"
	if got := w.Snapshot(0)[0].Label; got != nil {
		t.Fatalf("snapshot aliases store: %v", got)
	}
}

func TestApplyLabelIdempotent(t *testing.T) {
	w := NewWindowStore(10)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := w.Append(minuteCandle(t0, i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	ts := t0.Add(time.Minute)
	if err := w.ApplyLabel(ts, 1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := w.ApplyLabel(ts, 1); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	snap := w.Snapshot(0)
	if snap[1].Label != 1 {
		t.Fatalf("label not applied: %v", snap[1].Label)
	}
	if snap[0].Label != nil || snap[2].Label != nil {
		t.Fatalf("label leaked to other rows")
	}
}

func TestApplyLabelMissingTimestamp(t *testing.T) {
	w := NewWindowStore(10)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := w.Append(minuteCandle(t0, 0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := w.ApplyLabel(t0.Add(30*time.Second), "up")
	if !errors.Is(err, ErrLabelNotFound) {
		t.Fatalf("expected ErrLabelNotFound, got %v", err)
	}
	if got := w.Snapshot(0)[0].Label; got != nil {
		t.Fatalf("store changed on missing label: %v", got)
	}
}
