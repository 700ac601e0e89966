package logging

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Event is one structured log message submitted to the sink.
type Event struct {
	Level  zerolog.Level
	Msg    string
	Err    error
	Fields map[string]any
}

// Sink is a bounded, single-consumer asynchronous log queue.
//
// Submission never blocks: when the queue is full the event is dropped and
// counted instead of applying backpressure to the caller. Events are written
// in submission order, but no ordering is guaranteed relative to the caller's
// own progress: by the time an event reaches the log the request that
// produced it may already have completed.
type Sink struct {
	ch      chan Event
	quit    chan struct{}
	done    chan struct{}
	log     zerolog.Logger
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

// NewSink starts a sink writing through lg with the given queue capacity.
// Capacities below 1 are coerced to 1.
func NewSink(lg zerolog.Logger, queueSize int) *Sink {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &Sink{
		ch:   make(chan Event, queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		log:  lg,
	}
	go s.consume()
	return s
}

// Submit enqueues an event without blocking. It reports whether the event was
// accepted; a full queue or a closed sink drops the event.
func (s *Sink) Submit(e Event) bool {
	if s.closed.Load() {
		s.dropped.Add(1)
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Debug submits a debug-level event.
func (s *Sink) Debug(msg string, fields map[string]any) {
	s.Submit(Event{Level: zerolog.DebugLevel, Msg: msg, Fields: fields})
}

// Info submits an info-level event.
func (s *Sink) Info(msg string, fields map[string]any) {
	s.Submit(Event{Level: zerolog.InfoLevel, Msg: msg, Fields: fields})
}

// Warn submits a warn-level event.
func (s *Sink) Warn(msg string, fields map[string]any) {
	s.Submit(Event{Level: zerolog.WarnLevel, Msg: msg, Fields: fields})
}

// Error submits an error-level event carrying the original cause.
func (s *Sink) Error(msg string, err error, fields map[string]any) {
	s.Submit(Event{Level: zerolog.ErrorLevel, Msg: msg, Err: err, Fields: fields})
}

// Dropped returns the number of events discarded because the queue was full
// or the sink was closed.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting events, drains what is already queued, and waits for
// the consumer to finish. Safe to call more than once.
func (s *Sink) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.quit)
		<-s.done

		// A submitter that passed the closed check before the store above may
		// have enqueued after the consumer's final drain. Sweep once more so
		// every accepted event is written.
		for {
			select {
			case e := <-s.ch:
				s.write(e)
			default:
				if n := s.dropped.Load(); n > 0 {
					s.log.Warn().Uint64("dropped", n).Msg("log sink dropped events")
				}
				return
			}
		}
	})
}

// consume drains the queue until Close is requested, then flushes whatever
// is still buffered before exiting.
func (s *Sink) consume() {
	defer close(s.done)
	for {
		select {
		case e := <-s.ch:
			s.write(e)
		case <-s.quit:
			for {
				select {
				case e := <-s.ch:
					s.write(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(e Event) {
	ev := s.log.WithLevel(e.Level)
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg(e.Msg)
}
