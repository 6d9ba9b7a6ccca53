package authgate_test

import (
	"context"
	"testing"
	"time"

	authgate "github.com/harperbeck/authgate"
	"github.com/harperbeck/authgate/store"
)

func newAuditedEngine(t *testing.T) (*authgate.Engine, *authgate.ChannelSink) {
	t.Helper()

	sink := authgate.NewChannelSink(64)
	cfg := authgate.DefaultConfig()
	cfg.Session.SigningKey = testSigningKey
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Audit.Enabled = true

	engine, err := authgate.New().
		WithConfig(cfg).
		WithStore(store.NewMemoryStore(nil)).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, sink
}

func nextEvent(t *testing.T, sink *authgate.ChannelSink) authgate.AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event arrived")
		return authgate.AuditEvent{}
	}
}

func TestAuditTrailForLoginLifecycle(t *testing.T) {
	engine, sink := newAuditedEngine(t)
	ctx := authgate.WithClientIP(context.Background(), "203.0.113.7")

	if _, err := engine.Register(ctx, "a@x.com", "A", "pw12345678"); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.EventType != authgate.AuditRegistrationSuccess || !ev.Success || ev.IP != "203.0.113.7" {
		t.Fatalf("registration event: %+v", ev)
	}

	if _, err := engine.Authenticate(ctx, "a@x.com", "wrong-secret"); err == nil {
		t.Fatal("wrong secret accepted")
	}
	ev = nextEvent(t, sink)
	if ev.EventType != authgate.AuditLoginFailure || ev.Success || ev.Identity != "a@x.com" {
		t.Fatalf("failure event: %+v", ev)
	}

	if _, err := engine.Authenticate(ctx, "a@x.com", "pw12345678"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	ev = nextEvent(t, sink)
	if ev.EventType != authgate.AuditLoginSuccess || !ev.Success || ev.PrincipalID == "" {
		t.Fatalf("success event: %+v", ev)
	}
}

func TestAuditEventsCarryNoSecretMaterial(t *testing.T) {
	engine, sink := newAuditedEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "a@x.com", "A", "pw12345678"); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev := nextEvent(t, sink)
	if ev.Error != "" && ev.Error == "pw12345678" {
		t.Fatal("secret leaked into the event")
	}
	if ev.Metadata != nil {
		for _, v := range ev.Metadata {
			if v == "pw12345678" {
				t.Fatal("secret leaked into event metadata")
			}
		}
	}
}
