package delay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Session owns a Scheduler together with the logical clock that drives it
// and the Store that persists it. A host creates one Session per world it
// runs; nothing about it is global. It is not safe for concurrent use
type Session struct {
	config    Config
	sched     *Scheduler
	store     Store
	saver     *Autosaver
	log       *zap.Logger
	clock     Tick
	sinceSave int64
	closed    bool
	loadErr   error
}

var _ Clock = (*Session)(nil)

var (
	// ErrSessionClosed indicates the Session was used after Close
	ErrSessionClosed = errors.New("session closed")

	// ErrLoadFailed indicates a save was refused because the stored archive
	// could not be loaded and would have been overwritten
	ErrLoadFailed = errors.New("stored archive failed to load")
)

// NewSession creates a Session. The Store may be nil, in which case nothing
// is persisted
func NewSession(
	cfg Config, d Dispatcher, store Store, opts ...Option,
) *Session {
	sched := NewScheduler(d, opts...)
	s := &Session{
		config: cfg,
		sched:  sched,
		store:  store,
		log:    sched.log,
	}
	if store != nil {
		s.saver = NewAutosaver(store, cfg.Autosave, sched.log)
	}
	return s
}

// Now returns the Session's current tick
func (s *Session) Now() Tick {
	return s.clock
}

// SetNow moves the clock without firing anything. Hosts that keep their own
// clock use this before calling Advance on the Engine
func (s *Session) SetNow(t Tick) {
	s.clock = t
}

// Engine returns the Session's scheduler as an Engine
func (s *Session) Engine() Engine {
	return s.sched
}

// Scheduler returns the Session's scheduler
func (s *Session) Scheduler() *Scheduler {
	return s.sched
}

// Step advances the clock by one tick and fires whatever became due. When
// autosaving is enabled, the pending set is queued for saving every
// configured number of ticks
func (s *Session) Step(ctx context.Context) int {
	s.clock++
	fired := s.sched.Advance(ctx, s.clock)

	if s.saver == nil || s.loadErr != nil ||
		s.config.Autosave.EveryTicks <= 0 {
		return fired
	}
	s.sinceSave++
	if s.sinceSave >= s.config.Autosave.EveryTicks {
		s.sinceSave = 0
		if a, err := s.Archive(); err != nil {
			s.log.Error("Failed to build archive", zap.Error(err))
		} else {
			s.saver.Enqueue(a)
		}
	}
	return fired
}

// Archive captures the clock and the pending set
func (s *Session) Archive() (*Archive, error) {
	return NewArchive(s.clock, s.sched.Export())
}

// Save persists the current state synchronously
func (s *Session) Save(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.store == nil {
		return nil
	}
	if s.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, s.loadErr)
	}
	a, err := s.Archive()
	if err != nil {
		return err
	}
	s.sinceSave = 0
	return s.saver.SaveNow(ctx, a)
}

// Load restores the clock and imports the persisted records into the
// pending set, returning the number of events scheduled. Until a later Load
// succeeds, a failed Load leaves the stored archive untouched: Save refuses
// and Close skips its final save
func (s *Session) Load(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.store == nil {
		return 0, nil
	}
	a, err := s.store.Load(ctx)
	if err != nil {
		s.loadErr = err
		return 0, err
	}
	s.loadErr = nil
	s.clock = a.Clock
	loaded := s.sched.Import(a.Records)
	s.log.Info("Scheduled commands loaded",
		zap.Int64("clock", int64(a.Clock)),
		zap.Int("records", len(a.Records)),
		zap.Int("loaded", loaded),
	)
	return loaded, nil
}

// Close stops autosaving, saves what is still pending and closes the Store
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	if s.store == nil {
		s.closed = true
		return nil
	}

	s.saver.Stop()
	var err error
	if s.loadErr == nil {
		err = s.Save(ctx)
	}
	s.closed = true
	return errors.Join(err, s.store.Close())
}
