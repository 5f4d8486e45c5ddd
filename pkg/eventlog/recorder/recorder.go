package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/tripwire/pkg/eventlog"
)

// Config contains configuration for the event recorder.
type Config struct {
	// Buffer is the size of the async write channel.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds each storage write and the enqueue wait when the
	// buffer is full.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder implements eventlog.Appender on top of a Storage backend. Append
// stamps the event (uuid, per-entity sequence, timestamp, context metadata)
// and enqueues it; a single background worker writes in FIFO order, so
// storage order matches sequence order within every entity stream.
type Recorder struct {
	storage   eventlog.Storage
	config    *Config
	eventCh   chan *eventlog.Event
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	logger    *slog.Logger

	seqMu sync.Mutex
	seq   map[string]uint64
}

// NewRecorder creates a recorder and starts its background worker.
func NewRecorder(storage eventlog.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		eventCh: make(chan *eventlog.Event, config.Buffer),
		done:    make(chan struct{}),
		seq:     make(map[string]uint64),
		logger:  slog.Default().With("component", "eventlog.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("event recorder initialized",
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Append stamps and enqueues one event. It returns an error only when the
// buffer stays full past the write timeout or the recorder is shutting down;
// the caller treats that as an observability event, never as a mutation
// failure.
func (r *Recorder) Append(ctx context.Context, ev *eventlog.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.Meta == nil {
		ev.Meta = eventlog.MetaFromContext(ctx)
	}
	ev.Seq = r.nextSeq(ev.Entity)

	select {
	case r.eventCh <- ev:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("event channel full, dropping event",
			"event_id", ev.ID,
			"entity", ev.Entity,
			"label", ev.Label,
			"channel_capacity", r.config.Buffer,
		)
		return eventlog.NewStorageError("recorder", "enqueue", context.DeadlineExceeded)
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping event",
			"event_id", ev.ID,
			"entity", ev.Entity,
		)
		return eventlog.NewStorageError("recorder", "enqueue", context.Canceled)
	}
}

// Close drains the channel and waits for pending writes. Safe to call more
// than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

// nextSeq issues the next per-entity sequence number.
func (r *Recorder) nextSeq(entity string) uint64 {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	r.seq[entity]++
	return r.seq[entity]
}

// worker drains the event channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case ev := <-r.eventCh:
			r.write(ev)

		case <-r.done:
			for {
				select {
				case ev := <-r.eventCh:
					r.write(ev)
				default:
					return
				}
			}
		}
	}
}

// write stores a single event.
func (r *Recorder) write(ev *eventlog.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Append(ctx, ev); err != nil {
		r.logger.Error("failed to store event",
			"event_id", ev.ID,
			"entity", ev.Entity,
			"label", ev.Label,
			"error", err,
		)
		return
	}

	r.logger.Debug("event recorded",
		"event_id", ev.ID,
		"entity", ev.Entity,
		"entity_id", ev.EntityID,
		"label", ev.Label,
		"seq", ev.Seq,
	)
}
