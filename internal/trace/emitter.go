// Package trace forwards pipeline stage events to the observability sink.
// Delivery is fire-and-forget: a bounded queue with drop-oldest overflow and
// one background sender, so a slow or failing sink can never add latency or
// failure to the pipeline.
package trace

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Sink delivers one trace event. Swapped for a recorder in tests.
type Sink interface {
	Send(event *models.TraceEvent) error
}

// Config for the emitter.
type Config struct {
	SinkURL     string
	QueueSize   int
	HTTPTimeout time.Duration
}

// Emitter queues and forwards trace events.
type Emitter struct {
	events  chan *models.TraceEvent
	sink    Sink
	logger  *zap.Logger
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates an emitter posting to the configured HTTP sink and starts its
// sender. An empty sink URL yields a no-delivery emitter that only counts.
func New(cfg Config, logger *zap.Logger) *Emitter {
	var sink Sink
	if cfg.SinkURL != "" {
		sink = newHTTPSink(cfg.SinkURL, cfg.HTTPTimeout)
	}
	return NewWithSink(sink, cfg.QueueSize, logger)
}

// NewWithSink creates an emitter over an explicit sink.
func NewWithSink(sink Sink, queueSize int, logger *zap.Logger) *Emitter {
	if queueSize <= 0 {
		queueSize = 256
	}
	e := &Emitter{
		events: make(chan *models.TraceEvent, queueSize),
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Emit enqueues one event without blocking. On overflow the oldest queued
// event is dropped so the stream stays current.
func (e *Emitter) Emit(event *models.TraceEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Payload = Redact(event.Payload)

	select {
	case e.events <- event:
		return
	default:
	}

	// queue full: drop the oldest, then retry once
	select {
	case <-e.events:
		e.dropped.Add(1)
	default:
	}
	select {
	case e.events <- event:
	default:
		e.dropped.Add(1)
	}
}

// Dropped reports how many events were lost to overflow.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops the sender after draining the queue.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
	})
}

func (e *Emitter) run() {
	defer e.wg.Done()
	for {
		select {
		case event := <-e.events:
			e.send(event)
		case <-e.done:
			// drain what is queued, then stop
			for {
				select {
				case event := <-e.events:
					e.send(event)
				default:
					return
				}
			}
		}
	}
}

func (e *Emitter) send(event *models.TraceEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Send(event); err != nil {
		// diagnostic stream only: log and move on
		e.logger.Warn("Trace sink delivery failed",
			zap.String("step", string(event.Step)),
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
	}
}

// httpSink posts events to the dashboard's event endpoint.
type httpSink struct {
	client *resty.Client
}

func newHTTPSink(url string, timeout time.Duration) *httpSink {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &httpSink{client: client}
}

func (s *httpSink) Send(event *models.TraceEvent) error {
	_, err := s.client.R().SetBody(event).Post("")
	return err
}
