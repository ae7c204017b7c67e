// Package template implements per-recipient placeholder rendering.
package template

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMessageTooLong is returned when a rendered body exceeds the configured
// maximum length. The check runs after substitution; output is never
// truncated silently.
var ErrMessageTooLong = errors.New("rendered message exceeds maximum length")

// Renderer substitutes placeholder tokens of the form prefix+name+suffix with
// per-recipient values. Rendering is pure: the same inputs always produce the
// same output.
type Renderer struct {
	prefix    string
	suffix    string
	maxLength int
}

// NewRenderer constructs a Renderer. The delimiters must be non-empty and
// maxLength must be positive.
func NewRenderer(prefix, suffix string, maxLength int) (*Renderer, error) {
	if prefix == "" {
		return nil, errors.New("template: placeholder prefix must not be empty")
	}
	if suffix == "" {
		return nil, errors.New("template: placeholder suffix must not be empty")
	}
	if maxLength <= 0 {
		return nil, errors.New("template: message max length must be positive")
	}
	return &Renderer{prefix: prefix, suffix: suffix, maxLength: maxLength}, nil
}

// Render substitutes placeholders in the message body and enforces the
// configured maximum length on the result.
func (r *Renderer) Render(tmpl string, placeholders map[string]string) (string, error) {
	out := r.Substitute(tmpl, placeholders)
	if utf8.RuneCountInString(out) > r.maxLength {
		return "", fmt.Errorf("%w: %d > %d characters", ErrMessageTooLong, utf8.RuneCountInString(out), r.maxLength)
	}
	return out, nil
}

// Substitute performs the raw placeholder substitution without a length
// check. The scan is a single left-to-right pass: substituted values are
// appended to the output and never re-scanned, so values containing delimiter
// sequences cannot trigger second-order substitution. Tokens whose name has
// no mapping entry are dropped; mapping keys that never appear in the
// template are ignored.
func (r *Renderer) Substitute(tmpl string, placeholders map[string]string) string {
	if !strings.Contains(tmpl, r.prefix) {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, r.prefix)
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}

		after := rest[start+len(r.prefix):]
		end := strings.Index(after, r.suffix)
		if end < 0 {
			// Unterminated token: emit the remainder literally.
			b.WriteString(rest)
			return b.String()
		}

		b.WriteString(rest[:start])
		b.WriteString(placeholders[after[:end]])
		rest = after[end+len(r.suffix):]
	}
}
