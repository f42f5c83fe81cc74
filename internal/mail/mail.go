// Package mail delivers confirmation codes to users. Nothing here speaks
// SMTP: messages are handed to a queue, dropped into an object store as
// .eml files, or written to the log for local development.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yamdb/apiserver/config"
	"github.com/yamdb/apiserver/internal/metrics"
	"github.com/yamdb/apiserver/internal/mq"
	"github.com/yamdb/apiserver/internal/storage"
)

const confirmationSubject = "confirmation_code"

// Message is a plain-text email.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Confirmation builds the message carrying a user's confirmation code.
func Confirmation(from, to, code string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Subject:   confirmationSubject,
		Body:      code,
		CreatedAt: now.UTC(),
	}
}

// instrumented counts deliveries per backend.
type instrumented struct {
	next    Sender
	backend string
}

func (s instrumented) Send(ctx context.Context, msg Message) error {
	err := s.next.Send(ctx, msg)
	metrics.RecordMailDelivery(s.backend, err)
	return err
}

// WithMetrics wraps next so every delivery is counted under backend.
func WithMetrics(next Sender, backend string) Sender {
	return instrumented{next: next, backend: backend}
}

// Open builds the sender selected by cfg.Mail.Backend. The returned close
// func releases any broker or storage client it opened.
func Open(ctx context.Context, cfg config.Config) (Sender, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Mail.Backend {
	case "log", "":
		return WithMetrics(NewLogSender(), "log"), noop, nil
	case "queue":
		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return nil, nil, err
		}
		return WithMetrics(NewQueueSender(broker, cfg.Mail.Channel), broker.Name()), broker.Close, nil
	case "storage":
		store, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		return WithMetrics(NewStorageSender(store, cfg.Mail.Prefix), store.Name()), store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail backend %q", cfg.Mail.Backend)
	}
}
