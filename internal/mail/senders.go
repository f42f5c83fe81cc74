package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/yamdb/apiserver/internal/logging"
	"github.com/yamdb/apiserver/internal/storage"
)

// LogSender writes messages to the application log.
type LogSender struct{}

func NewLogSender() LogSender {
	return LogSender{}
}

func (LogSender) Send(_ context.Context, msg Message) error {
	logging.Info().
		Str("message_id", msg.ID).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("mail")
	return nil
}

// Publisher is the subset of *mq.MQ used by QueueSender.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// QueueSender publishes messages as JSON for an external mailer to consume.
type QueueSender struct {
	publisher Publisher
	channel   string
}

func NewQueueSender(publisher Publisher, channel string) *QueueSender {
	return &QueueSender{publisher: publisher, channel: channel}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	if _, err := s.publisher.Publish(ctx, s.channel, data, map[string]string{
		"message_id": msg.ID,
		"subject":    msg.Subject,
	}); err != nil {
		return fmt.Errorf("publish mail: %w", err)
	}
	return nil
}

// ObjectWriter is the subset of *storage.Storage used by StorageSender.
type ObjectWriter interface {
	Put(ctx context.Context, obj storage.Object) error
}

// StorageSender drops each message as an RFC 5322 .eml object.
type StorageSender struct {
	writer ObjectWriter
	prefix string
}

func NewStorageSender(writer ObjectWriter, prefix string) *StorageSender {
	return &StorageSender{writer: writer, prefix: prefix}
}

// Key returns the object key of msg: <prefix><yyyymmdd>/<id>.eml.
func (s *StorageSender) Key(msg Message) string {
	return s.prefix + msg.CreatedAt.Format("20060102") + "/" + msg.ID + ".eml"
}

func (s *StorageSender) Send(ctx context.Context, msg Message) error {
	err := s.writer.Put(ctx, storage.Object{
		Key:         s.Key(msg),
		Body:        []byte(RFC822(msg)),
		ContentType: "message/rfc822",
		Metadata:    map[string]string{"message-id": msg.ID},
	})
	if err != nil {
		return fmt.Errorf("store mail: %w", err)
	}
	return nil
}

// RFC822 renders msg as a minimal plain-text email.
func RFC822(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", msg.ID)
	fmt.Fprintf(&b, "Date: %s\r\n", msg.CreatedAt.Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return b.String()
}
