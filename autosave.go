package delay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type (
	// Autosaver persists archives on a background goroutine so that saving
	// never stalls the tick thread
	Autosaver struct {
		store  Store
		log    *zap.Logger
		ctx    context.Context
		cancel context.CancelFunc
		queue  chan saveRequest
		config AutosaveConfig
		wg     sync.WaitGroup

		saveMu    sync.Mutex
		mu        sync.Mutex
		nextGen   uint64
		savedGen  uint64
		stopped   bool
		lastError error
	}

	saveRequest struct {
		archive *Archive
		gen     uint64
	}
)

// NewAutosaver starts an Autosaver writing to the provided Store
func NewAutosaver(
	store Store, config AutosaveConfig, log *zap.Logger,
) *Autosaver {
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = DefaultAutosaveQueueSize
	}
	if config.SaveTimeout <= 0 {
		config.SaveTimeout = DefaultAutosaveSaveTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	as := &Autosaver{
		store:  store,
		log:    log,
		config: config,
		queue:  make(chan saveRequest, config.MaxQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	as.wg.Add(1)
	go as.worker()
	return as
}

// Enqueue schedules the Archive for saving without blocking. It returns
// false if the queue is full or the Autosaver has been stopped
func (as *Autosaver) Enqueue(a *Archive) bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.stopped {
		return false
	}
	as.nextGen++
	req := saveRequest{archive: a, gen: as.nextGen}

	select {
	case as.queue <- req:
		return true
	default:
		as.log.Warn("Autosave queue full, dropping archive",
			zap.Int64("clock", int64(a.Clock)),
			zap.Int("records", len(a.Records)),
			zap.Int("queue_size", len(as.queue)),
		)
		return false
	}
}

// SaveNow saves the Archive synchronously. Any older archive still queued
// is discarded rather than written over it
func (as *Autosaver) SaveNow(ctx context.Context, a *Archive) error {
	as.mu.Lock()
	as.nextGen++
	req := saveRequest{archive: a, gen: as.nextGen}
	as.mu.Unlock()
	return as.write(ctx, req)
}

// LastError returns the error from the most recent failed save, if any
func (as *Autosaver) LastError() error {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.lastError
}

// Stop drains pending saves and stops the worker
func (as *Autosaver) Stop() {
	as.mu.Lock()
	if as.stopped {
		as.mu.Unlock()
		return
	}
	as.stopped = true
	as.mu.Unlock()

	close(as.queue)
	as.wg.Wait()
	as.cancel()
}

func (as *Autosaver) worker() {
	defer as.wg.Done()
	for req := range as.queue {
		as.save(req)
	}
}

func (as *Autosaver) save(req saveRequest) {
	ctx, cancel := context.WithTimeout(as.ctx, as.config.SaveTimeout)
	defer cancel()
	_ = as.write(ctx, req)
}

func (as *Autosaver) write(ctx context.Context, req saveRequest) error {
	as.saveMu.Lock()
	defer as.saveMu.Unlock()

	as.mu.Lock()
	stale := req.gen <= as.savedGen
	as.mu.Unlock()
	if stale {
		return nil
	}

	start := time.Now()
	err := as.store.Save(ctx, req.archive)
	duration := time.Since(start)

	as.mu.Lock()
	defer as.mu.Unlock()
	if err != nil {
		as.lastError = err
		as.log.Error("Failed to save archive",
			zap.Int64("clock", int64(req.archive.Clock)),
			zap.Int("records", len(req.archive.Records)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return err
	}
	as.savedGen = req.gen
	as.lastError = nil
	as.log.Debug("Archive saved",
		zap.Int64("clock", int64(req.archive.Clock)),
		zap.Int("records", len(req.archive.Records)),
		zap.Duration("duration", duration),
	)
	return nil
}
