package persistence

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Autosaver writes snapshots of an Adapter at most once per interval. The
// snapshot is taken on the caller's goroutine; the write happens in the
// background and its failure is logged and dropped.
type Autosaver struct {
	adapter   *Adapter
	sometimes rate.Sometimes

	wg      sync.WaitGroup
	writeMu sync.Mutex
	seq     uint64
	written uint64
}

func NewAutosaver(a *Adapter, interval time.Duration) *Autosaver {
	return &Autosaver{
		adapter:   a,
		sometimes: rate.Sometimes{Interval: interval},
	}
}

// Maybe starts a background save if the interval has elapsed since the
// last one. The first call always saves.
func (s *Autosaver) Maybe(ctx context.Context) {
	s.sometimes.Do(func() {
		s.start(ctx)
	})
}

// Now starts a background save regardless of the interval.
func (s *Autosaver) Now(ctx context.Context) {
	s.start(ctx)
}

func (s *Autosaver) start(ctx context.Context) {
	snap := s.adapter.Snapshot()

	s.writeMu.Lock()
	s.seq++
	seq := s.seq
	s.writeMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		// A newer snapshot already landed.
		if seq <= s.written {
			return
		}
		if err := s.adapter.Write(ctx, snap); err != nil {
			s.adapter.logger.Warn("autosave failed", "slot", s.adapter.slot, "err", err)
			return
		}
		s.written = seq
	}()
}

// Wait blocks until every started save has finished.
func (s *Autosaver) Wait() {
	s.wg.Wait()
}
