// Package mailer orchestrates bulk template-based email delivery: it renders
// one message per recipient, dispatches through a relay session, and records
// every outcome in the sent-email history.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/mail-templater/internal/confirmation"
	"github.com/example/mail-templater/internal/models"
	"github.com/example/mail-templater/internal/relay"
	"github.com/example/mail-templater/internal/template"
)

// TemplateStore is the surface of the template storage the orchestrator
// needs: existence validation before sending.
type TemplateStore interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// HistoryStore persists delivery outcomes and categorized error records and
// answers history queries.
type HistoryStore interface {
	SaveError(ctx context.Context, rec *models.SendEmailError) (int64, error)
	SaveSentEmail(ctx context.Context, rec *models.SentEmail) (int64, error)
	QuerySentEmails(ctx context.Context, filter models.SentEmailFilter) ([]models.SentEmail, error)
}

// Config carries the rendering and confirmation-link settings.
type Config struct {
	PlaceholderPrefix   string
	PlaceholderSuffix   string
	MessageMaxLength    int
	ConfirmationBaseURL string
}

// Dependencies collects the collaborators required by the service.
type Dependencies struct {
	Templates TemplateStore
	History   HistoryStore
	Relay     relay.Provider
	Logger    zerolog.Logger
	Now       func() time.Time
	NewToken  func() string
}

// Service implements bulk sending, previewing and history queries.
type Service struct {
	renderer  *template.Renderer
	links     *confirmation.LinkBuilder
	templates TemplateStore
	history   HistoryStore
	relay     relay.Provider
	logger    zerolog.Logger
	now       func() time.Time
	newToken  func() string
}

// NewService constructs a Service using the supplied configuration and
// collaborators.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	renderer, err := template.NewRenderer(cfg.PlaceholderPrefix, cfg.PlaceholderSuffix, cfg.MessageMaxLength)
	if err != nil {
		return nil, err
	}
	links, err := confirmation.NewLinkBuilder(cfg.ConfirmationBaseURL)
	if err != nil {
		return nil, err
	}
	if deps.Templates == nil {
		return nil, errors.New("mailer: template store dependency is required")
	}
	if deps.History == nil {
		return nil, errors.New("mailer: history store dependency is required")
	}
	if deps.Relay == nil {
		return nil, errors.New("mailer: relay provider dependency is required")
	}

	log := deps.Logger
	if reflect.ValueOf(log).IsZero() {
		log = zerolog.Nop()
	}
	log = log.With().Str("component", "mailer").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}
	tokenFunc := deps.NewToken
	if tokenFunc == nil {
		tokenFunc = confirmation.GenerateToken
	}

	return &Service{
		renderer:  renderer,
		links:     links,
		templates: deps.Templates,
		history:   deps.History,
		relay:     deps.Relay,
		logger:    log,
		now:       nowFunc,
		newToken:  tokenFunc,
	}, nil
}

// SendEmails delivers the rendered message to every recipient sequentially
// and returns the number of successful deliveries.
//
// Authentication failures record the current recipient's outcome and abort
// the loop: the same credentials would fail identically for everyone left.
// Other relay-level failures are recorded and the loop continues. Runtime and
// unclassified failures are recorded and then returned to the caller,
// terminating the loop for the remaining recipients.
func (s *Service) SendEmails(ctx context.Context, req *models.SendEmailRequest) (int, error) {
	if req == nil {
		return 0, badRequestf("send request is required")
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return 0, err
	}

	sender, session, err := s.resolveSession(req.Credentials)
	if err != nil {
		return 0, err
	}

	attempted := 0
	failures := 0

	for i := range req.Recipients {
		recipient := &req.Recipients[i]

		subject := s.renderer.Substitute(req.Title, recipient.Placeholders)
		body, err := s.renderer.Render(req.Message, recipient.Placeholders)
		if err != nil {
			if errors.Is(err, template.ErrMessageTooLong) {
				return attempted - failures, badRequestf("message for recipient %s: %v", recipient.Email, err)
			}
			return attempted - failures, err
		}

		token := s.newToken()
		if req.IncludeConfirmationLink {
			body = s.links.AppendLink(body, recipient.Email, token, req.IsHTML)
		}

		attempted++
		sendErr := s.dispatch(ctx, session, &relay.Message{
			From:    sender,
			To:      recipient.Email,
			Subject: subject,
			Body:    body,
			IsHTML:  req.IsHTML,
		})

		if sendErr == nil {
			s.recordSuccess(ctx, req.TemplateID, sender, recipient.Email, subject, body, token)
			continue
		}

		failures++
		category := categorize(sendErr)
		s.recordFailure(ctx, req.TemplateID, sender, recipient.Email, subject, body, token, sendErr, category)

		if errors.Is(sendErr, relay.ErrAuthentication) {
			s.logger.Warn().
				Str("recipient", recipient.Email).
				Err(sendErr).
				Msg("authentication failed; aborting remaining recipients")
			return attempted - failures, fmt.Errorf("%w: %v", ErrAuthenticationFailed, sendErr)
		}

		switch category {
		case models.CategoryMessaging:
			s.logger.Warn().
				Str("recipient", recipient.Email).
				Err(sendErr).
				Msg("delivery failed; continuing with next recipient")
		case models.CategoryRuntime:
			return attempted - failures, sendErr
		default:
			return attempted - failures, fmt.Errorf("mailer: send to %s failed: %w", recipient.Email, sendErr)
		}
	}

	return attempted - failures, nil
}

// Preview renders each recipient's email without dispatching or persisting
// anything.
func (s *Service) Preview(req *models.PreviewEmailRequest) ([]models.RecipientEmailPreview, error) {
	if req == nil {
		return nil, badRequestf("preview request is required")
	}

	previews := make([]models.RecipientEmailPreview, 0, len(req.Recipients))
	for i := range req.Recipients {
		recipient := &req.Recipients[i]

		message, err := s.renderer.Render(req.Message, recipient.Placeholders)
		if err != nil {
			if errors.Is(err, template.ErrMessageTooLong) {
				return nil, badRequestf("message for recipient %s: %v", recipient.Email, err)
			}
			return nil, err
		}

		previews = append(previews, models.RecipientEmailPreview{
			Email:   recipient.Email,
			Subject: s.renderer.Substitute(req.Title, recipient.Placeholders),
			Message: message,
		})
	}

	return previews, nil
}

// GetSentEmails returns the sent-email history narrowed by the filter,
// ordered by timestamp ascending.
func (s *Service) GetSentEmails(ctx context.Context, filter models.SentEmailFilter) ([]models.SentEmail, error) {
	return s.history.QuerySentEmails(ctx, filter)
}

// DefaultRelayServer reports the relay server used when a send call carries
// no explicit credentials.
func (s *Service) DefaultRelayServer() relay.ServerInfo {
	return s.relay.DefaultServer()
}

func (s *Service) validateRequest(ctx context.Context, req *models.SendEmailRequest) error {
	if req.TemplateID <= 0 {
		return badRequestf("missing value for field: template_id")
	}

	exists, err := s.templates.ExistsByID(ctx, req.TemplateID)
	if err != nil {
		return fmt.Errorf("mailer: template lookup: %w", err)
	}
	if !exists {
		return badRequestf("email template with id %d does not exist", req.TemplateID)
	}

	if req.Credentials != nil && !req.Credentials.Provided() {
		return badRequestf("credentials must include username, password and relay_server_name")
	}
	if req.Credentials.Provided() && !s.relay.ServerExists(req.Credentials.RelayServerName) {
		return badRequestf("relay server with name %q was not found", req.Credentials.RelayServerName)
	}

	return nil
}

// resolveSession picks the sender identity and relay session once per call:
// explicit credentials when fully provided, the configured default otherwise.
func (s *Service) resolveSession(creds *models.Credentials) (string, relay.Session, error) {
	if creds.Provided() {
		session, err := s.relay.OpenSession(creds.Username, creds.Password, creds.RelayServerName)
		if err != nil {
			return "", nil, fmt.Errorf("mailer: open relay session: %w", err)
		}
		return creds.Username, session, nil
	}

	session, err := s.relay.OpenDefaultSession()
	if err != nil {
		return "", nil, fmt.Errorf("mailer: open default relay session: %w", err)
	}
	return s.relay.DefaultServer().Username, session, nil
}

// dispatch performs one delivery, converting panics into errors so they can
// be categorized and recorded like any other runtime failure.
func (s *Service) dispatch(ctx context.Context, session relay.Session, msg *relay.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return session.Send(ctx, msg)
}

func (s *Service) recordSuccess(ctx context.Context, templateID int64, sender, recipient, subject, body, token string) {
	_, err := s.history.SaveSentEmail(ctx, &models.SentEmail{
		TemplateID:        templateID,
		SenderEmail:       sender,
		RecipientEmail:    recipient,
		Subject:           subject,
		Message:           body,
		SentSuccessfully:  true,
		ConfirmationToken: token,
		Timestamp:         s.now(),
	})
	if err != nil {
		s.logger.Error().
			Str("recipient", recipient).
			Err(err).
			Msg("failed to persist sent email record")
	}
}

func (s *Service) recordFailure(ctx context.Context, templateID int64, sender, recipient, subject, body, token string, sendErr error, category models.ErrorCategory) {
	now := s.now()

	errorID, err := s.history.SaveError(ctx, &models.SendEmailError{
		Subject:        subject,
		Message:        body,
		SenderEmail:    sender,
		RecipientEmail: recipient,
		Error:          sendErr.Error(),
		Category:       category,
		Timestamp:      now,
	})
	if err != nil {
		s.logger.Error().
			Str("recipient", recipient).
			Err(err).
			Msg("failed to persist error record")
	}

	rec := &models.SentEmail{
		TemplateID:        templateID,
		SenderEmail:       sender,
		RecipientEmail:    recipient,
		Subject:           subject,
		Message:           body,
		SentSuccessfully:  false,
		ConfirmationToken: token,
		Timestamp:         now,
	}
	if err == nil {
		rec.ErrorID = &errorID
	}
	if _, err := s.history.SaveSentEmail(ctx, rec); err != nil {
		s.logger.Error().
			Str("recipient", recipient).
			Err(err).
			Msg("failed to persist sent email record")
	}
}

// categorize maps a dispatch error onto the persisted error taxonomy.
func categorize(err error) models.ErrorCategory {
	switch {
	case errors.Is(err, relay.ErrAuthentication), errors.Is(err, relay.ErrMessaging):
		return models.CategoryMessaging
	case isRuntime(err):
		return models.CategoryRuntime
	default:
		return models.CategoryUnknown
	}
}

func isRuntime(err error) bool {
	var pe *panicError
	if errors.As(err, &pe) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("mailer: panic during dispatch: %v", e.value)
}
