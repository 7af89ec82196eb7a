// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lodestar-io/lodestar/queue"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// committer is the subset of [kgo.Client] the adapter commits and pauses
// through. It keeps the adapter testable without a broker.
type committer interface {
	CommitRecords(context.Context, ...*kgo.Record) error
	PauseFetchPartitions(map[string][]int32) map[string][]int32
}

// clientAdapter exposes a [kgo.Client] as a [queue.LogClient] for a single
// topic. Partition assignment is tracked through the rebalance callbacks.
type clientAdapter struct {
	topic  string
	client committer
	wake   context.CancelFunc

	mu       sync.Mutex
	assigned map[int32]struct{}
}

func (a *clientAdapter) onAssigned(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.assigned == nil {
		a.assigned = make(map[int32]struct{})
	}
	for _, partition := range assigned[a.topic] {
		a.assigned[partition] = struct{}{}
	}
}

func (a *clientAdapter) onRemoved(_ context.Context, _ *kgo.Client, removed map[string][]int32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, partition := range removed[a.topic] {
		delete(a.assigned, partition)
	}
}

// Commit implements the [queue.LogClient] interface.
//
// Conflicts caused by a concurrent group change are reported as
// [queue.ErrCommitConflict] so the engine retries them once.
func (a *clientAdapter) Commit(ctx context.Context, offsets map[int32]int64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// CommitRecords commits record offset + 1, while offsets already hold
	// the next offset to consume. The records are synthesized rather than
	// polled, so the leader epoch is unknown; -1 keeps the commit from
	// claiming epoch 0 and tripping truncation detection after a leader
	// election.
	records := make([]*kgo.Record, 0, len(offsets))
	for partition, next := range offsets {
		records = append(records, &kgo.Record{
			Topic:       a.topic,
			Partition:   partition,
			Offset:      next - 1,
			LeaderEpoch: -1,
		})
	}

	err := a.client.CommitRecords(ctx, records...)
	if err == nil {
		return nil
	}
	if isCommitConflict(err) {
		return fmt.Errorf("%w: %w", queue.ErrCommitConflict, err)
	}
	return err
}

func isCommitConflict(err error) bool {
	return errors.Is(err, kerr.RebalanceInProgress) ||
		errors.Is(err, kerr.IllegalGeneration) ||
		errors.Is(err, kerr.UnknownMemberID)
}

// Pause implements the [queue.LogClient] interface.
func (a *clientAdapter) Pause(partitions []int32) error {
	a.client.PauseFetchPartitions(map[string][]int32{
		a.topic: partitions,
	})
	return nil
}

// Assignment implements the [queue.LogClient] interface.
func (a *clientAdapter) Assignment() ([]int32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	partitions := make([]int32, 0, len(a.assigned))
	for partition := range a.assigned {
		partitions = append(partitions, partition)
	}
	return partitions, nil
}

// Wakeup implements the [queue.LogClient] interface. It cancels the poll
// context so a blocked PollFetches returns immediately.
func (a *clientAdapter) Wakeup() {
	a.wake()
}
