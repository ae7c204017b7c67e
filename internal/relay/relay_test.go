package relay

import (
	"context"
	"errors"
	"net/textproto"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/mail-templater/internal/config"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"auth reply code", &textproto.Error{Code: 535, Msg: "5.7.8 credentials invalid"}, ErrAuthentication},
		{"auth reply code 530", &textproto.Error{Code: 530, Msg: "5.7.0 authentication required"}, ErrAuthentication},
		{"auth message text", errors.New("535-5.7.8 Username and Password not accepted"), ErrAuthentication},
		{"transient reply code", &textproto.Error{Code: 451, Msg: "try again later"}, ErrMessaging},
		{"generic failure", errors.New("550 mailbox unavailable"), ErrMessaging},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("classify(%v) = %v, want sentinel %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestGomailProviderValidation(t *testing.T) {
	if _, err := NewGomailProvider(config.RelayConfig{}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without servers")
	}

	cfg := config.RelayConfig{
		Servers:       []config.RelayServer{{Name: "primary", Host: "smtp.example.com", Port: 587}},
		DefaultServer: "missing",
		Username:      "noreply@example.com",
		Password:      "secret",
	}
	if _, err := NewGomailProvider(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown default server")
	}

	cfg.DefaultServer = "primary"
	p, err := NewGomailProvider(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.ServerExists("PRIMARY") {
		t.Fatalf("server lookup should be case insensitive")
	}
	if p.ServerExists("other") {
		t.Fatalf("unexpected server reported as existing")
	}

	info := p.DefaultServer()
	if info.Name != "primary" || info.Host != "smtp.example.com" || info.Port != 587 {
		t.Fatalf("unexpected default server info: %+v", info)
	}
	if info.Username != "noreply@example.com" {
		t.Fatalf("unexpected default username: %q", info.Username)
	}

	if _, err := p.OpenSession("user", "pass", "other"); err == nil {
		t.Fatalf("expected error opening session on unknown server")
	}
}

func TestMockProviderSuccess(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	session, err := p.OpenDefaultSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := &Message{From: "noreply@localhost", To: "user@example.com", Subject: "hi", Body: "hello"}
	if err := session.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	sent := p.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 recorded message, got %d", len(sent))
	}
	if sent[0].To != "user@example.com" {
		t.Fatalf("unexpected recipient recorded: %q", sent[0].To)
	}
}

func TestMockProviderScenarios(t *testing.T) {
	p := NewMockProvider(zerolog.Nop(),
		WithRecipientScenario("auth@example.com", ScenarioAuth),
		WithRecipientScenario("busy@example.com", ScenarioMessaging),
		WithRecipientScenario("odd@example.com", ScenarioUnknown),
	)

	session, err := p.OpenDefaultSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = session.Send(context.Background(), &Message{To: "auth@example.com"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication failure, got %v", err)
	}

	err = session.Send(context.Background(), &Message{To: "busy@example.com"})
	if !errors.Is(err, ErrMessaging) {
		t.Fatalf("expected messaging failure, got %v", err)
	}

	err = session.Send(context.Background(), &Message{To: "odd@example.com"})
	if err == nil || errors.Is(err, ErrMessaging) || errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected unclassified failure, got %v", err)
	}

	if len(p.Sent()) != 0 {
		t.Fatalf("failed sends must not be recorded")
	}
}

func TestMockProviderRuntimePanics(t *testing.T) {
	p := NewMockProvider(zerolog.Nop(), WithDefaultScenario(ScenarioRuntime))

	session, err := p.OpenDefaultSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected runtime scenario to panic")
		}
	}()
	_ = session.Send(context.Background(), &Message{To: "user@example.com"})
}

func TestMockProviderCancelledContext(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	session, err := p.OpenDefaultSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = session.Send(ctx, &Message{To: "user@example.com"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockProviderUnknownServer(t *testing.T) {
	p := NewMockProvider(zerolog.Nop(), WithServers("alpha"))

	if p.ServerExists("mock") {
		t.Fatalf("overridden server list should drop the default name")
	}
	if _, err := p.OpenSession("user", "pass", "beta"); err == nil {
		t.Fatalf("expected error for unknown server")
	}
	if _, err := p.OpenSession("user", "pass", "alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
