// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package kafka binds the [queue.Engine] to a Kafka consumer group.
//
// A [Runtime] consumes a single topic with manual, batched offset commits
// and cooperative sticky rebalancing. Records which exhaust their
// processing retries are republished to a dead letter topic by
// [TopicPublisher], carrying provenance headers describing the original
// record and the failure.
//
// Infrastructure settings (brokers, group, timeouts, TLS) are read through
// composable [config.Reader]s so they can come from the environment, files,
// or be hardcoded in tests. See [Build] for wiring everything together.
package kafka
