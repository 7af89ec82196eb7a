//go:build testcontainers

// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// setupKafkaContainer starts a single node KRaft Kafka broker and returns
// its address along with a cleanup function.
func setupKafkaContainer(t *testing.T) (brokers []string, cleanup func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image: "docker.io/apache/kafka-native:latest",
		HostConfigModifier: func(hc *container.HostConfig) {
			// Host networking sidesteps advertised listener remapping.
			hc.NetworkMode = "host"
		},
		User: "root",
		Env: map[string]string{
			"KAFKA_NODE_ID":                   "1",
			"KAFKA_PROCESS_ROLES":             "broker,controller",
			"KAFKA_CONTROLLER_QUORUM_VOTERS":  "1@localhost:9093",
			"KAFKA_CONTROLLER_LISTENER_NAMES": "CONTROLLER",

			"KAFKA_LISTENERS":                      "PLAINTEXT://0.0.0.0:9092,CONTROLLER://0.0.0.0:9093",
			"KAFKA_ADVERTISED_LISTENERS":           "PLAINTEXT://localhost:9092",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP": "PLAINTEXT:PLAINTEXT,CONTROLLER:PLAINTEXT",
			"KAFKA_INTER_BROKER_LISTENER_NAME":     "PLAINTEXT",

			"KAFKA_LOG_DIRS":   "/var/lib/kafka/data",
			"KAFKA_CLUSTER_ID": "WmV3pZkQR0O6n5j3x8j6bg==",

			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR":         "1",
			"KAFKA_TRANSACTION_STATE_LOG_REPLICATION_FACTOR": "1",
			"KAFKA_TRANSACTION_STATE_LOG_MIN_ISR":            "1",
			"KAFKA_GROUP_INITIAL_REBALANCE_DELAY_MS":         "0",
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE":                "false",
		},
		WaitingFor: wait.ForLog("Kafka Server started").WithStartupTimeout(60 * time.Second),
	}

	kafkaContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Kafka container")

	time.Sleep(2 * time.Second)

	cleanup = func() {
		if err := kafkaContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	}

	return []string{"localhost:9092"}, cleanup
}

// createTopics creates topics with the given number of partitions.
func createTopics(t *testing.T, brokers []string, partitions int32, topics ...string) {
	t.Helper()

	ctx := context.Background()

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	require.NoError(t, err, "failed to create Kafka client")
	defer client.Close()

	admin := kadm.NewClient(client)

	resp, err := admin.CreateTopics(ctx, partitions, 1, nil, topics...)
	require.NoError(t, err, "failed to create topics")

	for _, topicResp := range resp {
		require.NoError(t, topicResp.Err, "failed to create topic %s", topicResp.Topic)
	}

	time.Sleep(1 * time.Second)
}

// produceMessages produces value-only records to a topic. The record key
// doubles as the partitioning key.
func produceMessages(t *testing.T, brokers []string, topic string, values ...string) {
	t.Helper()

	ctx := context.Background()

	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	require.NoError(t, err, "failed to create Kafka client")
	defer client.Close()

	for _, value := range values {
		record := &kgo.Record{
			Topic: topic,
			Key:   []byte("key-" + value),
			Value: []byte(value),
		}
		require.NoError(t, client.ProduceSync(ctx, record).FirstErr(), "failed to produce %q", value)
	}

	require.NoError(t, client.Flush(ctx), "failed to flush messages")
}

// consumeAll consumes up to want records from a topic and returns their values.
func consumeAll(t *testing.T, brokers []string, topic string, want int, timeout time.Duration) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err, "failed to create Kafka client")
	defer client.Close()

	var values []string
	for len(values) < want {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			break
		}
		fetches.EachRecord(func(record *kgo.Record) {
			values = append(values, string(record.Value))
		})
	}
	return values
}
