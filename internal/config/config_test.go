package config_test

import (
	"strings"
	"testing"

	"github.com/example/mail-templater/internal/config"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONFIRMATION_BASE_URL", "https://mail.example.com/confirm")
	t.Setenv("RELAY_SERVERS", "primary=smtp.example.com:587, backup=smtp2.example.com:465")
	t.Setenv("RELAY_DEFAULT_SERVER", "primary")
	t.Setenv("RELAY_USERNAME", "noreply@example.com")
	t.Setenv("RELAY_PASSWORD", "secret")
	t.Setenv("KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("KAFKA_SEND_REQUEST_TOPIC", "mail.send.request")
	t.Setenv("KAFKA_SEND_REPORT_TOPIC", "mail.send.report")
	t.Setenv("KAFKA_SEND_DLQ_TOPIC", "mail.send.dlq")
	t.Setenv("SEND_CONSUMER_GROUP", "send-worker")
}

func TestLoad(t *testing.T) {
	setValidEnv(t)
	t.Setenv("TEMPLATE_MESSAGE_MAX_LENGTH", "500")
	t.Setenv("JOB_CONCURRENCY", "8")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "test" || cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected app config: %+v", cfg.App)
	}
	if cfg.Templates.PlaceholderPrefix != "${" || cfg.Templates.PlaceholderSuffix != "}" {
		t.Fatalf("expected default delimiters, got %+v", cfg.Templates)
	}
	if cfg.Templates.MessageMaxLength != 500 {
		t.Fatalf("expected max length override, got %d", cfg.Templates.MessageMaxLength)
	}
	if cfg.Worker.JobConcurrency != 8 {
		t.Fatalf("expected concurrency override, got %d", cfg.Worker.JobConcurrency)
	}

	if len(cfg.Relay.Servers) != 2 {
		t.Fatalf("expected 2 relay servers, got %+v", cfg.Relay.Servers)
	}
	srv, ok := cfg.Relay.ServerByName("backup")
	if !ok || srv.Host != "smtp2.example.com" || srv.Port != 465 {
		t.Fatalf("unexpected backup server: %+v", srv)
	}
	def, ok := cfg.Relay.Default()
	if !ok || def.Name != "primary" {
		t.Fatalf("unexpected default server: %+v", def)
	}

	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.RequestTopic != "mail.send.request" {
		t.Fatalf("unexpected kafka config: %+v", cfg.Kafka)
	}
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Templates.MessageMaxLength != 10000 {
		t.Fatalf("unexpected default max length: %d", cfg.Templates.MessageMaxLength)
	}
	if cfg.Worker.JobConcurrency != 4 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Worker.JobConcurrency)
	}
	if cfg.Storage.Path != "mail-templater.db" {
		t.Fatalf("unexpected default storage path: %q", cfg.Storage.Path)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setValidEnv(t)
	t.Setenv("KAFKA_BROKERS", "")

	_, err := config.Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "KAFKA_BROKERS") {
		t.Fatalf("expected KAFKA_BROKERS in error, got %v", err)
	}
}

func TestLoadRelayServerParsing(t *testing.T) {
	setValidEnv(t)
	t.Setenv("RELAY_SERVERS", "primary=smtp.example.com")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for missing port")
	}

	t.Setenv("RELAY_SERVERS", "primary=smtp.example.com:587,primary=smtp2.example.com:587")
	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for duplicate server names")
	}

	t.Setenv("RELAY_SERVERS", "primary=smtp.example.com:587")
	t.Setenv("RELAY_DEFAULT_SERVER", "backup")
	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error when default server is not listed")
	}
}

func TestLoadInvalidConcurrency(t *testing.T) {
	setValidEnv(t)
	t.Setenv("JOB_CONCURRENCY", "0")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for zero concurrency")
	}
}
