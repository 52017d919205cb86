package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/branchline-ai/conversation-tree/pkg/metrics"
)

const (
	// StreamName is the JetStream stream mirroring conversation events.
	StreamName = "CONVERSATION_EVENTS"

	// SubjectPrefix is the prefix for all conversation subjects.
	SubjectPrefix = "conv"
)

// Mirror copies conversation events into JetStream so external
// consumers can replay activity. Publishing is best effort and never
// blocks request handling.
type Mirror struct {
	client *Client
}

// NewMirror creates a mirror on top of a connected client.
func NewMirror(client *Client) *Mirror {
	return &Mirror{client: client}
}

// EnsureStream creates the events stream if it does not exist yet.
func (m *Mirror) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Conversation tree events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject an event is published under.
func EventSubject(conversationID, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, conversationID, eventType)
}

// Publish mirrors one event asynchronously. Failures are logged and
// counted, never returned; the WebSocket fan-out is the delivery path
// clients depend on.
func (m *Mirror) Publish(conversationID, eventType string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		subject := EventSubject(conversationID, eventType)
		if _, err := m.client.JetStream().Publish(ctx, subject, data); err != nil {
			metrics.NATSPublishesTotal.WithLabelValues("error").Inc()
			m.client.logger.Warn("failed to mirror event",
				zap.String("subject", subject),
				zap.Error(err),
			)
			return
		}
		metrics.NATSPublishesTotal.WithLabelValues("ok").Inc()
	}()
}
