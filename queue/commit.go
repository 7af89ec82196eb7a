// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import "sync"

// commitBuffer accumulates the next offset to commit per partition.
//
// Recorded values are the offset of the next message to consume, so a
// successfully handled message at offset o is recorded as o+1. Values
// only advance; recording a lower offset for a partition is a no-op.
type commitBuffer struct {
	mu   sync.Mutex
	next map[int32]int64
}

func newCommitBuffer() *commitBuffer {
	return &commitBuffer{
		next: make(map[int32]int64),
	}
}

// record marks next as the next offset to consume for partition.
func (b *commitBuffer) record(partition int32, next int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.next[partition]; ok && cur >= next {
		return
	}
	b.next[partition] = next
}

// take removes and returns every pending offset. The caller owns the
// returned map and must restore it if the commit fails.
func (b *commitBuffer) take() map[int32]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.next) == 0 {
		return nil
	}
	taken := b.next
	b.next = make(map[int32]int64)
	return taken
}

// restore merges offsets back after a failed commit. Offsets recorded
// since the take win, since they are necessarily higher.
func (b *commitBuffer) restore(offsets map[int32]int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for partition, next := range offsets {
		if cur, ok := b.next[partition]; ok && cur >= next {
			continue
		}
		b.next[partition] = next
	}
}
