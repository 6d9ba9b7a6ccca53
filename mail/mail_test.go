package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLink(t *testing.T) {
	got := Link("https://app.example.com", "/auth/verify-email", "tok+1/2")
	want := "https://app.example.com/auth/verify-email?token=tok%2B1%2F2"
	if got != want {
		t.Fatalf("Link = %q, want %q", got, want)
	}
}

func TestLinkBadBase(t *testing.T) {
	got := Link("://broken", "/auth/reset-password", "tok")
	if !strings.HasPrefix(got, "http://localhost/auth/reset-password?") {
		t.Fatalf("Link with bad base = %q", got)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(&buf)

	err := s.Send(context.Background(), Message{
		From:    "no-reply@example.com",
		To:      "alice@example.com",
		Subject: "Verify your email",
		Body:    "click the link",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var line struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not one JSON line: %v", err)
	}
	if line.To != "alice@example.com" || line.Subject != "Verify your email" {
		t.Fatalf("unexpected line: %+v", line)
	}
}
