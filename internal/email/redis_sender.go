package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	mockEmailTTL = 5 * time.Minute
	unknownKind  = "unknown"
)

// MockEmailKey is where RedisSender files a message for recipient and kind.
func MockEmailKey(recipient, kind string) string {
	return fmt.Sprintf("mockemail:%s:%s", recipient, kind)
}

// StoredEmail is the JSON document RedisSender writes.
type StoredEmail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Kind    string `json:"kind"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// RedisSender stores emails in Redis so tests can read them back through the
// service API.
type RedisSender struct {
	client redis.Cmdable
	log    zerolog.Logger
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client redis.Cmdable, log zerolog.Logger) *RedisSender {
	return &RedisSender{client: client, log: log}
}

// Send parses the headers of rawMessage and stores a JSON copy keyed by the
// first recipient and the message kind.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	stored := StoredEmail{
		To:      strings.Join(to, ", "),
		Subject: subject,
		Kind:    unknownKind,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		stored.From = msg.Header.Get("From")
		if kind := msg.Header.Get(HeaderKind); kind != "" {
			stored.Kind = kind
		}
		if body, err := io.ReadAll(msg.Body); err == nil {
			stored.Body = string(body)
		}
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	jsonData, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, stored.Kind)
	if err := s.client.Set(ctx, key, jsonData, mockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	s.log.Info().Str("key", key).Dur("ttl", mockEmailTTL).Str("subject", subject).Msg("mock email stored in Redis")
	return nil
}
