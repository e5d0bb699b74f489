package audit

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBacklogFull = errors.New("audit backlog full, batch dropped")
	ErrSinkClosed  = errors.New("audit sink closed")
)

// AsyncSink hands batches to one worker goroutine through a bounded queue,
// so the wrapped sink sees them in publish order without blocking the caller.
// When the queue is full the batch is dropped and ErrBacklogFull returned.
type AsyncSink struct {
	next  Sink
	queue chan Batch
	log   zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
}

func NewAsyncSink(next Sink, capacity int) *AsyncSink {
	if capacity <= 0 {
		capacity = 1
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan Batch, capacity),
		log:   log.Logger.With().Str("component", "audit-async").Logger(),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	for batch := range s.queue {
		if err := s.next.Publish(batch); err != nil {
			s.log.Error().Err(err).Int("records", len(batch)).Msg("Failed to publish audit batch")
		}
	}
}

func (s *AsyncSink) Publish(batch Batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- batch:
		return nil
	default:
		s.dropped.Add(1)
		return ErrBacklogFull
	}
}

// Dropped counts batches rejected because the queue was full.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains queued batches into the wrapped sink and then closes it.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return s.next.Close()
}
