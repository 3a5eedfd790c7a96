package autopoiesis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"kairo/internal/logging"
	"kairo/internal/types"
)

var (
	// ErrRecorderClosed is returned when offering to a closed recorder.
	ErrRecorderClosed = errors.New("feedback recorder closed")
	// ErrRecorderFull is returned when the buffer is full and the record was dropped.
	ErrRecorderFull = errors.New("feedback recorder buffer full")
)

// DefaultBufferSize is used when a non-positive buffer size is given.
const DefaultBufferSize = 256

// appendTimeout bounds one write to the feedback log.
const appendTimeout = 5 * time.Second

// Recorder is a fire-and-forget feedback sink. Append never blocks: records
// go into a buffered channel drained by one worker, and a full buffer drops
// the record and counts it.
type Recorder struct {
	log types.FeedbackLog

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool
	ch     chan types.FeedbackRecord
	done   chan struct{}

	accepted atomic.Int64
	dropped  atomic.Int64
	written  atomic.Int64
	failed   atomic.Int64
}

var _ types.FeedbackSink = (*Recorder)(nil)

// RecorderStats reports recorder counters.
type RecorderStats struct {
	Accepted int64
	Dropped  int64
	Written  int64
	Failed   int64
	Pending  int
}

// NewRecorder starts a recorder writing to log.
func NewRecorder(log types.FeedbackLog, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	r := &Recorder{
		log:  log,
		ch:   make(chan types.FeedbackRecord, bufferSize),
		done: make(chan struct{}),
	}
	go r.run()
	logging.AutopoiesisDebug("Feedback recorder started (buffer=%d)", bufferSize)
	return r
}

// Append queues rec without blocking.
func (r *Recorder) Append(rec types.FeedbackRecord) {
	_ = r.Offer(rec)
}

// Offer queues rec and reports why it was not accepted.
func (r *Recorder) Offer(rec types.FeedbackRecord) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return ErrRecorderClosed
	}
	select {
	case r.ch <- rec:
		r.accepted.Add(1)
		return nil
	default:
		total := r.dropped.Add(1)
		logging.AutopoiesisWarn("Feedback buffer full, dropped record %s", rec.RequestID)
		logging.AuditWithRequest(rec.RequestID).FeedbackDropped(total)
		return ErrRecorderFull
	}
}

// Close stops accepting records and waits until queued records are written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	<-r.done
	logging.Autopoiesis("Feedback recorder closed: %+v", r.Stats())
	return nil
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Accepted: r.accepted.Load(),
		Dropped:  r.dropped.Load(),
		Written:  r.written.Load(),
		Failed:   r.failed.Load(),
		Pending:  len(r.ch),
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err := r.log.Append(ctx, rec)
		cancel()
		if err != nil {
			r.failed.Add(1)
			logging.AutopoiesisWarn("Failed to write feedback %s: %v", rec.RequestID, err)
			continue
		}
		r.written.Add(1)
	}
}
