package integrations

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"kentj-backend/internal/models"

	"go.uber.org/zap"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueConfig tunes a DeliveryQueue.
type QueueConfig struct {
	Enabled       bool
	BatchSize     int
	RetryAttempts int
	// MaxRequeues bounds how often a single event returns to the head after a failed flush.
	// Zero keeps requeueing forever.
	MaxRequeues int
	Version     string
}

const deadLetterTimeout = 5 * time.Second

type pendingEvent struct {
	payload  models.EventPayload
	requeues int
}

// DeliveryQueue batches event payloads and posts them to the events workflow.
// Delivery is best effort: failures are logged and the batch goes back to the head of the
// queue, never to the caller. The queue lives in memory only.
type DeliveryQueue struct {
	cfg    QueueConfig
	client *WebhookClient
	probe  *Probe
	sink   DeadLetterSink
	sleep  Sleeper
	now    func() time.Time
	log    *zap.Logger

	mu       sync.Mutex
	pending  []pendingEvent
	flushing bool
}

var _ Integration = (*DeliveryQueue)(nil)

// QueueOption customizes a DeliveryQueue.
type QueueOption func(*DeliveryQueue)

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(s Sleeper) QueueOption {
	return func(q *DeliveryQueue) { q.sleep = s }
}

// WithDeadLetterSink receives events that exceeded MaxRequeues.
func WithDeadLetterSink(s DeadLetterSink) QueueOption {
	return func(q *DeliveryQueue) { q.sink = s }
}

// WithClock overrides the time source used for batch timestamps.
func WithClock(now func() time.Time) QueueOption {
	return func(q *DeliveryQueue) {
		q.now = now
		q.probe.now = now
	}
}

// NewDeliveryQueue creates a queue posting to client.
func NewDeliveryQueue(cfg QueueConfig, client *WebhookClient, log *zap.Logger, opts ...QueueOption) *DeliveryQueue {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	log = log.Named("queue")
	q := &DeliveryQueue{
		cfg:    cfg,
		client: client,
		probe:  NewProbe(client, cfg.Version),
		sink:   NewLogDeadLetterSink(log),
		sleep:  SleepContext,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends event. When the queue reaches the batch size and no flush is running, the
// batch is flushed before Enqueue returns. Disabled queues drop the event.
//
// The threshold flush is detached from ctx cancellation so a disconnecting client cannot
// abandon a batch halfway; each attempt is still bounded by the webhook timeout.
func (q *DeliveryQueue) Enqueue(ctx context.Context, event models.EventPayload) {
	if !q.cfg.Enabled {
		q.log.Debug("workflow integration disabled, dropping event", zap.String("session_id", event.SessionID))
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, pendingEvent{payload: event})
	shouldFlush := !q.flushing && len(q.pending) >= q.cfg.BatchSize
	q.mu.Unlock()

	if shouldFlush {
		q.Flush(context.WithoutCancel(ctx))
	}
}

// Flush sends up to BatchSize events from the head of the queue. It retries with exponential
// backoff (2^n seconds) and, once RetryAttempts is exhausted, puts the batch back at the head
// in its original order. Concurrent calls while a flush is running return immediately.
// Cancelling ctx stops the retries and requeues the batch.
func (q *DeliveryQueue) Flush(ctx context.Context) {
	q.mu.Lock()
	if q.flushing || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	n := q.cfg.BatchSize
	if n > len(q.pending) {
		n = len(q.pending)
	}
	batch := make([]pendingEvent, n)
	copy(batch, q.pending[:n])
	q.pending = append([]pendingEvent(nil), q.pending[n:]...)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	attempts := 0
	for {
		err := q.send(ctx, batch)
		if err == nil {
			q.log.Info("delivered batch to workflow", zap.Int("batch_size", len(batch)))
			return
		}

		attempts++
		q.log.Warn("batch delivery attempt failed",
			zap.Int("attempt", attempts),
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			q.log.Warn("flush cancelled, requeueing batch", zap.Int("batch_size", len(batch)), zap.Error(ctx.Err()))
			q.requeue(ctx, batch, err)
			return
		}
		if attempts >= q.cfg.RetryAttempts {
			q.log.Error("giving up on batch after all retries, requeueing",
				zap.Int("attempts", attempts),
				zap.Int("batch_size", len(batch)),
			)
			q.requeue(ctx, batch, err)
			return
		}

		if err := q.sleep(ctx, backoff(attempts)); err != nil {
			q.requeue(ctx, batch, err)
			return
		}
	}
}

// TestConnection sends a diagnostic request to the events workflow. The pending queue is
// not touched.
func (q *DeliveryQueue) TestConnection(ctx context.Context) models.TestConnectionResult {
	return q.probe.TestConnection(ctx)
}

// Status reports the queue length and whether a flush is running.
func (q *DeliveryQueue) Status() models.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return models.QueueStatus{QueueLength: len(q.pending), IsProcessing: q.flushing}
}

// Drain flushes batches until the queue is empty, a flush makes no progress, or ctx is done.
// It returns an error naming how many events remain undelivered.
func (q *DeliveryQueue) Drain(ctx context.Context) error {
	for {
		before := q.Status().QueueLength
		if before == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%d events left undelivered: %w", before, err)
		}
		q.Flush(ctx)
		after := q.Status().QueueLength
		if err := ctx.Err(); err != nil && after > 0 {
			return fmt.Errorf("%d events left undelivered: %w", after, err)
		}
		if after >= before {
			return fmt.Errorf("%d events left undelivered", after)
		}
	}
}

func (q *DeliveryQueue) send(ctx context.Context, batch []pendingEvent) error {
	messages := make([]models.EventPayload, len(batch))
	for i, ev := range batch {
		messages[i] = ev.payload
	}

	body := models.BatchEnvelope{
		Batch:    true,
		Messages: messages,
		Metadata: models.BatchMetadata{
			BatchSize: len(batch),
			Timestamp: models.FormatTime(q.now()),
			Version:   q.cfg.Version,
		},
	}
	headers := map[string]string{
		"X-Batch-Size":     strconv.Itoa(len(batch)),
		"X-Kent-J-Version": q.cfg.Version,
	}
	_, err := q.client.Post(ctx, body, headers)
	return err
}

// requeue puts batch back at the head, keeping order. Events over MaxRequeues go to the sink.
func (q *DeliveryQueue) requeue(ctx context.Context, batch []pendingEvent, cause error) {
	keep := make([]pendingEvent, 0, len(batch))
	var dead []models.EventPayload
	for _, ev := range batch {
		ev.requeues++
		if q.cfg.MaxRequeues > 0 && ev.requeues > q.cfg.MaxRequeues {
			dead = append(dead, ev.payload)
			continue
		}
		keep = append(keep, ev)
	}

	q.mu.Lock()
	q.pending = append(keep, q.pending...)
	q.mu.Unlock()

	if len(dead) == 0 {
		return
	}
	// The sink still gets a chance when the flush itself was cancelled.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
	defer cancel()
	if err := q.sink.Publish(pubCtx, dead, cause); err != nil {
		q.log.Error("dead-letter publish failed, events dropped", zap.Int("count", len(dead)), zap.Error(err))
	}
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
