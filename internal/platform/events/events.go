// Copyright (c) 2026 Signet. All rights reserved.
// Author: dev@signet.id

/*
Package events publishes authentication lifecycle events to Kafka.

Downstream services (mailers, fraud detection, analytics) consume these
events instead of polling the user store. Publishing is strictly
fire-and-forget from the caller's perspective: an unreachable broker is
logged and never fails the originating request.
*/
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// # Event Names

const (
	// UserRegistered fires after a new account row is committed.
	UserRegistered = "user.registered"

	// UserLoggedIn fires after a successful credential verification.
	UserLoggedIn = "user.logged_in"

	// UserPasswordReset fires after a reset token was consumed successfully.
	UserPasswordReset = "user.password_reset"
)

// Event is the JSON payload written to the auth events topic.
type Event struct {
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits auth lifecycle events keyed by user ID.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher builds a Kafka-backed [Publisher].
//
// # Parameters
//   - brokers: Comma-separated broker list (host:port,host:port).
//   - topic: Destination topic for all auth events.
//   - logger: Structured logger for delivery failures.
func NewPublisher(brokers, topic string, logger *slog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		// Async keeps auth latency independent of broker latency.
		Async: true,
	}

	return &Publisher{writer: writer, logger: logger}
}

/*
Publish emits a single auth event.

Description: Marshals the event and hands it to the async Kafka writer.
Errors are logged, never returned — event delivery must not affect the
outcome of the credential operation that triggered it.

Parameters:
  - context: context.Context
  - name: Event name constant
  - userID: Owning user ID (also the partition key)
*/
func (publisher *Publisher) Publish(context context.Context, name, userID string) {
	payload, err := json.Marshal(Event{
		Name:       name,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		publisher.logger.Error("events_marshal_failed", slog.String("event", name), slog.Any("error", err))
		return
	}

	err = publisher.writer.WriteMessages(context, kafka.Message{
		Key:   []byte(userID),
		Value: payload,
	})
	if err != nil {
		publisher.logger.Error("events_publish_failed", slog.String("event", name), slog.Any("error", err))
	}
}

// Close flushes buffered messages and releases the writer.
func (publisher *Publisher) Close() error {
	return publisher.writer.Close()
}

// # Noop Variant

// Noop is a [Publisher] stand-in used when Kafka is not configured.
// It satisfies the same consumer-side interface and discards everything.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, string, string) {}
