package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sprouthq/sprout/internal/model"
	"github.com/sprouthq/sprout/internal/remote"
	"github.com/sprouthq/sprout/internal/store"
)

// maxRetries is the per-item budget across drains; an item that has failed
// this many drains is abandoned so it cannot block the queue forever.
const maxRetries = 3

// Syncer drains the offline reward queue against the remote account service
// on a fixed interval. Local state is always authoritative; the syncer only
// replays mutations outward and never writes back.
type Syncer struct {
	queue    *store.SyncQueueStore
	client   *remote.Client
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func New(queue *store.SyncQueueStore, client *remote.Client, interval time.Duration, logger *slog.Logger) *Syncer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Syncer{
		queue:    queue,
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the periodic drain loop.
func (s *Syncer) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Drain(ctx); err != nil {
					s.logger.Error("sync drain", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the drain loop.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// Drain replays every queued item in FIFO order. The drain is gated on a
// reachability ping so an offline stretch does not burn retry budgets; items
// stay queued untouched until the remote answers.
func (s *Syncer) Drain(ctx context.Context) error {
	if !s.client.Enabled() {
		return nil
	}

	items, err := s.queue.List()
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	if err := s.client.Ping(ctx); err != nil {
		s.logger.Debug("remote unreachable, drain skipped", "error", err)
		return nil
	}

	for i := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.syncItem(ctx, &items[i]); err != nil {
			s.logger.Warn("sync item failed", "id", items[i].ID, "action", items[i].Action, "error", err)
			if err := s.recordFailure(&items[i]); err != nil {
				return err
			}
			continue
		}
		if err := s.queue.Delete(items[i].ID); err != nil {
			return fmt.Errorf("dequeue synced item: %w", err)
		}
	}
	return nil
}

// syncItem replays one queued mutation, retrying transient failures with a
// short exponential backoff before giving the drain's per-item verdict.
func (s *Syncer) syncItem(ctx context.Context, it *model.SyncItem) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		switch it.Action {
		case model.SyncActionCreate:
			err = s.client.CreateReward(ctx, it.Payload)
		case model.SyncActionClaim:
			err = s.client.ClaimReward(ctx, it.RewardID, it.Payload)
		default:
			return fmt.Errorf("unknown sync action %q", it.Action)
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *Syncer) recordFailure(it *model.SyncItem) error {
	count, err := s.queue.IncrementRetry(it.ID)
	if err != nil {
		return err
	}
	if count >= maxRetries {
		s.logger.Warn("abandoning sync item after repeated failures",
			"id", it.ID, "action", it.Action, "reward_id", it.RewardID, "retries", count)
		return s.queue.Delete(it.ID)
	}
	return nil
}
