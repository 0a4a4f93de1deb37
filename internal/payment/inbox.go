package payment

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/thitipong-w/slotwise/internal/repository"
	"github.com/thitipong-w/slotwise/pkg/logger"
	"github.com/thitipong-w/slotwise/pkg/telemetry"
)

// Provider event types the inbox understands.
const (
	EventSetupSucceeded = "setup_intent.succeeded"
	EventSetupFailed    = "setup_intent.setup_failed"
)

// dedupeTTL bounds the fast-path dedupe window. The database inbox record
// is the authoritative dedupe; Redis only absorbs tight retries.
const dedupeTTL = 24 * time.Hour

// ProviderEvent is a normalized provider webhook event. Matching back to a
// payment uses the provider-assigned setup id, never timing.
type ProviderEvent struct {
	ID             string
	Type           string
	SetupID        string
	MethodID       string
	FailureCode    string
	FailureMessage string
}

// Inbox applies provider events to the payment machine with at-least-once
// dedupe. Events for the same setup are processed in arrival order by
// hashing onto a fixed shard.
type Inbox struct {
	machine  *Machine
	payments repository.PaymentRepository
	rdb      *redis.Client // optional fast-path dedupe
	log      *logger.Logger

	shards []chan ProviderEvent
	wg     sync.WaitGroup

	processed  *telemetry.Counter
	duplicates *telemetry.Counter
}

// NewInbox creates an inbox with the given number of ordered shards.
func NewInbox(machine *Machine, payments repository.PaymentRepository, rdb *redis.Client, log *logger.Logger, shardCount int) *Inbox {
	if shardCount < 1 {
		shardCount = 4
	}
	shards := make([]chan ProviderEvent, shardCount)
	for i := range shards {
		shards[i] = make(chan ProviderEvent, 64)
	}
	processed, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "inbox_events_processed_total",
		Description: "Provider events applied to the payment machine",
		Unit:        "1",
	})
	duplicates, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "inbox_events_duplicate_total",
		Description: "Provider events dropped as already processed",
		Unit:        "1",
	})
	return &Inbox{
		machine:    machine,
		payments:   payments,
		rdb:        rdb,
		log:        log,
		shards:     shards,
		processed:  processed,
		duplicates: duplicates,
	}
}

// Start launches the shard workers.
func (in *Inbox) Start(ctx context.Context) {
	for i, ch := range in.shards {
		in.wg.Add(1)
		go func(shard int, events <-chan ProviderEvent) {
			defer in.wg.Done()
			for evt := range events {
				if err := in.Process(ctx, evt); err != nil {
					in.log.WithContext(ctx).Error("provider event failed",
						zap.Int("shard", shard),
						zap.String("event_id", evt.ID),
						zap.String("event_type", evt.Type),
						zap.Error(err),
					)
				}
			}
		}(i, ch)
	}
}

// Submit enqueues an event. Events with the same setup id land on the same
// shard and are processed in order. Must not be called after Stop.
func (in *Inbox) Submit(evt ProviderEvent) {
	h := fnv.New32a()
	h.Write([]byte(evt.SetupID))
	in.shards[int(h.Sum32())%len(in.shards)] <- evt
}

// Stop drains the shards and waits for in-flight events.
func (in *Inbox) Stop() {
	for _, ch := range in.shards {
		close(ch)
	}
	in.wg.Wait()
}

// Process dedupes and applies one event. Safe to call synchronously from a
// webhook handler when ordering does not matter.
func (in *Inbox) Process(ctx context.Context, evt ProviderEvent) error {
	if in.rdb != nil {
		fresh, err := in.rdb.SetNX(ctx, "inbox:"+evt.ID, 1, dedupeTTL).Result()
		if err != nil {
			// Redis down: fall through to the database dedupe.
			in.log.WithContext(ctx).Warn("inbox dedupe cache unavailable", zap.Error(err))
		} else if !fresh {
			in.countDuplicate(ctx, evt)
			return nil
		}
	}

	// Apply before recording. The handlers are idempotent, so a crash
	// between the two steps replays harmlessly on redelivery; recording
	// first would drop the transition for good if the handler failed.
	var handleErr error
	switch evt.Type {
	case EventSetupSucceeded:
		handleErr = in.machine.HandleSetupSucceeded(ctx, evt.SetupID, evt.MethodID)
	case EventSetupFailed:
		handleErr = in.machine.HandleSetupFailed(ctx, evt.SetupID, evt.FailureCode, evt.FailureMessage)
	default:
		// Unknown types are acknowledged, not retried.
		in.log.WithContext(ctx).Debug("ignoring provider event",
			zap.String("event_type", evt.Type))
	}
	if handleErr != nil {
		// Clear the fast-path marker so the provider's redelivery of this
		// event id is retried rather than dropped as a duplicate.
		if in.rdb != nil {
			if err := in.rdb.Del(ctx, "inbox:"+evt.ID).Err(); err != nil {
				in.log.WithContext(ctx).Warn("inbox dedupe unmark failed",
					zap.String("event_id", evt.ID), zap.Error(err))
			}
		}
		return handleErr
	}

	fresh, err := in.payments.MarkEventProcessed(ctx, evt.ID, evt.Type)
	if err != nil {
		return err
	}
	if !fresh {
		in.countDuplicate(ctx, evt)
		return nil
	}
	if in.processed != nil {
		in.processed.Inc(ctx, telemetry.EventTypeAttr(evt.Type))
	}
	return nil
}

func (in *Inbox) countDuplicate(ctx context.Context, evt ProviderEvent) {
	if in.duplicates != nil {
		in.duplicates.Inc(ctx, telemetry.EventTypeAttr(evt.Type))
	}
}
