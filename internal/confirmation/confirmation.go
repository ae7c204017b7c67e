// Package confirmation issues one-time confirmation tokens and appends
// confirmation links to outbound message bodies.
package confirmation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// GenerateToken returns an opaque, globally unique token. One token is issued
// per send attempt and never reused.
func GenerateToken() string {
	return uuid.NewString()
}

// LinkBuilder composes confirmation links pointing at the application
// confirmation endpoint.
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder constructs a LinkBuilder from the configured endpoint base,
// e.g. "https://mail.example.com/confirm".
func NewLinkBuilder(baseURL string) (*LinkBuilder, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("confirmation: base url must not be empty")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("confirmation: invalid base url: %w", err)
	}
	return &LinkBuilder{baseURL: trimmed}, nil
}

// ConfirmationURL builds the confirmation URL carrying the token and the
// recipient address as query parameters.
func (b *LinkBuilder) ConfirmationURL(recipientEmail, token string) string {
	params := url.Values{}
	params.Set("token", token)
	params.Set("email", recipientEmail)
	return b.baseURL + "?" + params.Encode()
}

// AppendLink appends the confirmation action to the end of the body. HTML
// bodies receive an anchor fragment; plain text bodies a bare URL line.
func (b *LinkBuilder) AppendLink(body, recipientEmail, token string, isHTML bool) string {
	link := b.ConfirmationURL(recipientEmail, token)
	if isHTML {
		return body + fmt.Sprintf("<br><br><a href=%q>Confirm</a>", link)
	}
	return body + "\n\n" + link
}
