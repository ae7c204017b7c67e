package confirmation_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/example/mail-templater/internal/confirmation"
)

func TestGenerateTokenUnique(t *testing.T) {
	a := confirmation.GenerateToken()
	b := confirmation.GenerateToken()
	if a == "" || b == "" {
		t.Fatalf("expected non-empty tokens")
	}
	if a == b {
		t.Fatalf("expected unique tokens, got %q twice", a)
	}
}

func TestNewLinkBuilderValidation(t *testing.T) {
	if _, err := confirmation.NewLinkBuilder(""); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := confirmation.NewLinkBuilder("   "); err == nil {
		t.Fatalf("expected error for blank base url")
	}
}

func TestConfirmationURL(t *testing.T) {
	b, err := confirmation.NewLinkBuilder("https://mail.example.com/confirm/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	link := b.ConfirmationURL("user+tag@example.com", "tok-123")
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link is not a valid url: %v", err)
	}
	if parsed.Path != "/confirm" {
		t.Fatalf("expected trailing slash trimmed, got path %q", parsed.Path)
	}
	if got := parsed.Query().Get("token"); got != "tok-123" {
		t.Fatalf("unexpected token param: %q", got)
	}
	if got := parsed.Query().Get("email"); got != "user+tag@example.com" {
		t.Fatalf("unexpected email param: %q", got)
	}
}

func TestAppendLink(t *testing.T) {
	b, err := confirmation.NewLinkBuilder("https://mail.example.com/confirm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plain := b.AppendLink("Hello Ada", "user@example.com", "tok", false)
	if !strings.HasPrefix(plain, "Hello Ada\n\n") {
		t.Fatalf("expected body preserved with blank line, got %q", plain)
	}
	if !strings.Contains(plain, "token=tok") {
		t.Fatalf("expected token in plain link, got %q", plain)
	}
	if strings.Contains(plain, "<a ") {
		t.Fatalf("plain body must not contain markup, got %q", plain)
	}

	html := b.AppendLink("<p>Hello Ada</p>", "user@example.com", "tok", true)
	if !strings.HasPrefix(html, "<p>Hello Ada</p><br><br><a href=") {
		t.Fatalf("expected anchor appended to html body, got %q", html)
	}
	if !strings.Contains(html, ">Confirm</a>") {
		t.Fatalf("expected anchor text, got %q", html)
	}
}
