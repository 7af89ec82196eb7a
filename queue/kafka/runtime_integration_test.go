//go:build testcontainers

// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lodestar-io/lodestar/queue"

	"github.com/stretchr/testify/require"
)

func integrationConfig(brokers []string, groupID, topic, dlqTopic string) Config {
	return Config{
		Brokers:         staticReader(brokers),
		GroupID:         staticReader(groupID),
		Topic:           staticReader(topic),
		DeadLetterTopic: staticReader(dlqTopic),
		Engine: queue.Config{
			MaxRetries:        1,
			InitialRetryDelay: 10 * time.Millisecond,
			MaxRetryDelay:     50 * time.Millisecond,
		},
	}
}

func TestRuntime_Run(t *testing.T) {
	brokers, cleanup := setupKafkaContainer(t)
	defer cleanup()

	t.Run("will process and commit every record", func(t *testing.T) {
		createTopics(t, brokers, 3, "orders", "orders.dlq")
		produceMessages(t, brokers, "orders", "a", "b", "c", "d", "e")

		var mu sync.Mutex
		var processed []string

		processor := queue.ProcessorFuncs[Message]{
			ProcessFunc: func(ctx context.Context, msg Message) error {
				mu.Lock()
				defer mu.Unlock()
				processed = append(processed, string(msg.Value))
				return nil
			},
			RecordIDFunc: func(msg Message) (string, error) {
				return string(msg.Key), nil
			},
		}

		cfg := integrationConfig(brokers, "it-commit", "orders", "orders.dlq")
		runtime, err := Build(cfg, processor).Build(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- runtime.Run(ctx)
		}()

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(processed) == 5
		}, 30*time.Second, 100*time.Millisecond)

		cancel()
		require.NoError(t, <-done)

		mu.Lock()
		require.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, processed)
		mu.Unlock()
	})

	t.Run("will dead letter records which exhaust their retries", func(t *testing.T) {
		createTopics(t, brokers, 1, "payments", "payments.dlq")
		produceMessages(t, brokers, "payments", "good", "poison", "also-good")

		processor := queue.ProcessorFuncs[Message]{
			ProcessFunc: func(ctx context.Context, msg Message) error {
				if string(msg.Value) == "poison" {
					return errors.New("cannot process poison")
				}
				return nil
			},
			RecordIDFunc: func(msg Message) (string, error) {
				return string(msg.Key), nil
			},
		}

		cfg := integrationConfig(brokers, "it-dlq", "payments", "payments.dlq")
		runtime, err := Build(cfg, processor).Build(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- runtime.Run(ctx)
		}()

		deadLettered := consumeAll(t, brokers, "payments.dlq", 1, 30*time.Second)
		require.Equal(t, []string{"poison"}, deadLettered)

		cancel()
		require.NoError(t, <-done)
	})
}
