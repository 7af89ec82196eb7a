// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lodestar-io/lodestar/app"
	"github.com/lodestar-io/lodestar/config"
	"github.com/lodestar-io/lodestar/queue"
)

// Header represents a Kafka message header.
type Header struct {
	Key   string
	Value []byte
}

// Message represents a Kafka message.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   []Header
	Timestamp time.Time
	Topic     string
	Partition int32
	Offset    int64
}

// Config holds configuration readers for Kafka infrastructure settings
// along with the engine tuning.
type Config struct {
	Brokers         config.Reader[[]string]
	GroupID         config.Reader[string]
	Topic           config.Reader[string]
	DeadLetterTopic config.Reader[string]

	SessionTimeout       config.Reader[time.Duration]
	RebalanceTimeout     config.Reader[time.Duration]
	FetchMaxBytes        config.Reader[int32]
	MaxConcurrentFetches config.Reader[int]
	TLSConfig            config.Reader[*tls.Config]

	// Engine tunes retries, backoff, commits, and shutdown. Zero valued
	// fields fall back to the [queue] package defaults.
	Engine queue.Config
}

// BrokersFromEnv reads Kafka broker addresses from the KAFKA_BROKERS
// environment variable. Brokers should be comma-separated
// (e.g., "localhost:9092,localhost:9093").
func BrokersFromEnv() config.Reader[[]string] {
	return config.Map(
		config.Env("KAFKA_BROKERS"),
		func(ctx context.Context, s string) ([]string, error) {
			return strings.Split(s, ","), nil
		},
	)
}

// GroupIDFromEnv reads the Kafka consumer group ID from the KAFKA_GROUP_ID
// environment variable.
func GroupIDFromEnv() config.Reader[string] {
	return config.Env("KAFKA_GROUP_ID")
}

// TopicFromEnv reads the topic to consume from the KAFKA_TOPIC
// environment variable.
func TopicFromEnv() config.Reader[string] {
	return config.Env("KAFKA_TOPIC")
}

// DeadLetterTopicFromEnv reads the dead letter topic from the
// KAFKA_DEAD_LETTER_TOPIC environment variable.
func DeadLetterTopicFromEnv() config.Reader[string] {
	return config.Env("KAFKA_DEAD_LETTER_TOPIC")
}

// SessionTimeoutFromEnv reads the Kafka session timeout from the
// KAFKA_SESSION_TIMEOUT environment variable. The value should be a
// duration string (e.g., "45s", "1m30s").
func SessionTimeoutFromEnv() config.Reader[time.Duration] {
	return config.Map(
		config.Env("KAFKA_SESSION_TIMEOUT"),
		func(ctx context.Context, s string) (time.Duration, error) {
			return time.ParseDuration(s)
		},
	)
}

// RebalanceTimeoutFromEnv reads the Kafka rebalance timeout from the
// KAFKA_REBALANCE_TIMEOUT environment variable. The value should be a
// duration string (e.g., "30s", "1m").
func RebalanceTimeoutFromEnv() config.Reader[time.Duration] {
	return config.Map(
		config.Env("KAFKA_REBALANCE_TIMEOUT"),
		func(ctx context.Context, s string) (time.Duration, error) {
			return time.ParseDuration(s)
		},
	)
}

// FetchMaxBytesFromEnv reads the maximum fetch bytes from the
// KAFKA_FETCH_MAX_BYTES environment variable. The value should be a
// number (e.g., "52428800" for 50MB).
func FetchMaxBytesFromEnv() config.Reader[int32] {
	return config.Map(
		config.Env("KAFKA_FETCH_MAX_BYTES"),
		func(ctx context.Context, s string) (int32, error) {
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return 0, err
			}
			return int32(n), nil
		},
	)
}

// MaxConcurrentFetchesFromEnv reads the maximum concurrent fetches from
// the KAFKA_MAX_CONCURRENT_FETCHES environment variable.
func MaxConcurrentFetchesFromEnv() config.Reader[int] {
	return config.Map(
		config.Env("KAFKA_MAX_CONCURRENT_FETCHES"),
		func(ctx context.Context, s string) (int, error) {
			return strconv.Atoi(s)
		},
	)
}

// TLSConfigFromFiles creates a config.Reader that loads a TLS
// configuration from certificate files.
//
// Example:
//
//	tlsConfig := kafka.TLSConfigFromFiles(
//	    config.ValueOf("client-cert.pem"),
//	    config.ValueOf("client-key.pem"),
//	    config.ValueOf("ca-cert.pem"),
//	)
func TLSConfigFromFiles(
	certFile config.Reader[string],
	keyFile config.Reader[string],
	caFile config.Reader[string],
) config.Reader[*tls.Config] {
	return config.ReaderFunc[*tls.Config](func(ctx context.Context) (config.Value[*tls.Config], error) {
		certPath := config.Must(ctx, certFile)
		keyPath := config.Must(ctx, keyFile)
		caPath := config.Must(ctx, caFile)

		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return config.Value[*tls.Config]{}, fmt.Errorf("failed to load client certificate: %w", err)
		}

		caCert, err := os.ReadFile(caPath)
		if err != nil {
			return config.Value[*tls.Config]{}, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return config.Value[*tls.Config]{}, fmt.Errorf("failed to parse CA certificate: %s", caPath)
		}

		return config.ValueOf(&tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      caPool,
			MinVersion:   tls.VersionTLS12,
		}), nil
	})
}

// BuildOption configures optional [Runtime] behaviour.
type BuildOption func(*Runtime)

// WithFallback sets the last resort hook consulted when dead letter
// publishing is exhausted. It is only used when
// [queue.Config.EnableDLQFallback] is set.
func WithFallback(f queue.Fallback[Message]) BuildOption {
	return func(r *Runtime) {
		r.fallback = f
	}
}

// Build creates an app.Builder for a Kafka consumer runtime which drives
// processor through a [queue.Engine].
//
// Example:
//
//	cfg := kafka.Config{
//	    Brokers:         kafka.BrokersFromEnv(),
//	    GroupID:         kafka.GroupIDFromEnv(),
//	    Topic:           kafka.TopicFromEnv(),
//	    DeadLetterTopic: kafka.DeadLetterTopicFromEnv(),
//	}
//
//	builder := kafka.Build(cfg, ordersProcessor)
func Build(cfg Config, processor queue.Processor[Message], opts ...BuildOption) app.Builder[*Runtime] {
	return app.BuilderFunc[*Runtime](func(ctx context.Context) (*Runtime, error) {
		if processor == nil {
			return nil, fmt.Errorf("kafka: a processor must be configured")
		}

		brokers := config.Must(ctx, cfg.Brokers)
		groupID := config.Must(ctx, cfg.GroupID)
		topic := config.Must(ctx, cfg.Topic)
		deadLetterTopic := config.MustOr(ctx, topic+".dlq", cfg.DeadLetterTopic)

		sessionTimeout := config.MustOr(ctx, 45*time.Second, cfg.SessionTimeout)
		rebalanceTimeout := config.MustOr(ctx, 30*time.Second, cfg.RebalanceTimeout)
		fetchMaxBytes := config.MustOr(ctx, int32(50*1024*1024), cfg.FetchMaxBytes)
		maxConcurrentFetches := config.MustOr(ctx, 0, cfg.MaxConcurrentFetches)
		tlsConfig := config.MustOr(ctx, (*tls.Config)(nil), cfg.TLSConfig)

		log := logger().With(
			GroupIDAttr(groupID),
			TopicAttr(topic),
		)

		runtime := &Runtime{
			log:                  log,
			brokers:              brokers,
			groupID:              groupID,
			topic:                topic,
			deadLetterTopic:      deadLetterTopic,
			sessionTimeout:       sessionTimeout,
			rebalanceTimeout:     rebalanceTimeout,
			fetchMaxBytes:        fetchMaxBytes,
			maxConcurrentFetches: maxConcurrentFetches,
			tlsConfig:            tlsConfig,
			engineConfig:         cfg.Engine,
			processor:            instrumentProcessor(log, processor),
		}
		for _, opt := range opts {
			opt(runtime)
		}
		return runtime, nil
	})
}
