// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package queue implements a resilient, partition ordered consumption engine.
//
// The [Engine] sits between a pull based log client and application business
// logic. Each record handed to [Engine.Receive] is processed asynchronously
// under a per partition serialization guarantee: records from the same
// partition are processed strictly in receive order while distinct partitions
// make progress concurrently.
//
// Failed records are retried with exponential backoff up to a configurable
// bound and then routed to a dead letter sink, which itself is retried and
// may fall back to a caller supplied hook. Offsets for finished records are
// buffered and committed opportunistically at the top of each Receive call,
// so commits piggyback on new arrivals instead of issuing one round trip per
// record.
//
// No error from the processor, the dead letter publisher, or the log client
// ever escapes the engine. Every failure is caught, classified, counted and
// routed to a terminal fate: commit, dead letter, or drop for redelivery.
package queue
