package util_test

import (
	"errors"
	"testing"
	"time"

	"github.com/example/mail-templater/internal/util"
)

func TestParseUUIDv4(t *testing.T) {
	_, err := util.ParseUUIDv4("b0c9c2b0-1f3a-4d2d-9e3f-123456789abc")
	if err != nil {
		t.Fatalf("expected success parsing valid uuid: %v", err)
	}

	if _, err := util.ParseUUIDv4(""); !errors.Is(err, util.ErrInvalidUUID) {
		t.Fatalf("expected ErrInvalidUUID for empty string, got %v", err)
	}

	if _, err := util.ParseUUIDv4("6fa459ea-ee8a-11d2-90f6-000000000000"); !errors.Is(err, util.ErrInvalidUUID) {
		t.Fatalf("expected ErrInvalidUUID for non v4 uuid, got %v", err)
	}
}

func TestParseRFC3339(t *testing.T) {
	ts, err := util.ParseRFC3339("2026-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("expected success parsing timestamp: %v", err)
	}

	if got := ts.Format(time.RFC3339); got != "2026-03-01T10:00:00Z" {
		t.Fatalf("unexpected timestamp round trip: %s", got)
	}

	if _, err := util.ParseRFC3339("not-a-time"); !errors.Is(err, util.ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	addr, err := util.NormalizeEmail("User@example.com")
	if err != nil {
		t.Fatalf("expected valid email: %v", err)
	}
	if addr != "user@example.com" {
		t.Fatalf("expected lowercased email, got %q", addr)
	}

	_, err = util.NormalizeEmail("User <user@example.com>")
	if !errors.Is(err, util.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail for display name, got %v", err)
	}

	if _, err := util.NormalizeEmail(""); !errors.Is(err, util.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail for empty string, got %v", err)
	}
}
