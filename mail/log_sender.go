package mail

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// LogSender writes one JSON object per message to w instead of
// delivering anything. Useful in development and as the fallback sender
// when the host wires no real transport.
type LogSender struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

func NewLogSender(w io.Writer) *LogSender {
	return &LogSender{w: w, enc: json.NewEncoder(w)}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(struct {
		Timestamp time.Time `json:"ts"`
		From      string    `json:"from"`
		To        string    `json:"to"`
		Subject   string    `json:"subject"`
		Body      string    `json:"body"`
	}{time.Now().UTC(), msg.From, msg.To, msg.Subject, msg.Body})
}

// RecordingSender captures messages for assertions in tests.
type RecordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *RecordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

// Fail makes subsequent sends return err.
func (s *RecordingSender) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Messages returns a snapshot of everything sent so far.
func (s *RecordingSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}
