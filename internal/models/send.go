package models

// Recipient is one destination address together with the placeholder values
// used when rendering the template for that address. Placeholder keys are
// unique; keys that never appear in the template are ignored.
type Recipient struct {
	Email        string            `json:"email"`
	Placeholders map[string]string `json:"placeholders,omitempty"`
}

// Credentials optionally override the configured default relay identity for a
// single send call. The override is honoured only when every field is set;
// partially filled credentials are rejected as invalid input.
type Credentials struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	RelayServerName string `json:"relay_server_name"`
}

// Provided reports whether the credentials are fully specified.
func (c *Credentials) Provided() bool {
	return c != nil && c.Username != "" && c.Password != "" && c.RelayServerName != ""
}

// SendEmailRequest describes one bulk send call: a template reference plus the
// already-resolved title/message, the recipient list, and delivery options.
type SendEmailRequest struct {
	TemplateID              int64        `json:"template_id"`
	Credentials             *Credentials `json:"credentials,omitempty"`
	Recipients              []Recipient  `json:"recipients"`
	Title                   string       `json:"title"`
	Message                 string       `json:"message"`
	IsHTML                  bool         `json:"is_html"`
	IncludeConfirmationLink bool         `json:"include_confirmation_link"`
}

// PreviewEmailRequest carries the inputs for a preview call. Previews render
// per recipient without dispatching or persisting anything.
type PreviewEmailRequest struct {
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	IsHTML     bool        `json:"is_html"`
	Recipients []Recipient `json:"recipients"`
}

// RecipientEmailPreview is the rendered view of one recipient's email.
type RecipientEmailPreview struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
