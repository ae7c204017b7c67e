package relay

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/example/mail-templater/internal/config"
)

// GomailProvider resolves sessions against the relay servers from
// configuration, delivering mail through gomail's SMTP dialer.
type GomailProvider struct {
	logger zerolog.Logger
	cfg    config.RelayConfig
}

// NewGomailProvider constructs a Provider backed by the configured relay
// servers. The configured default server must exist.
func NewGomailProvider(cfg config.RelayConfig, logger zerolog.Logger) (*GomailProvider, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("relay: at least one server is required")
	}
	if _, ok := cfg.Default(); !ok {
		return nil, fmt.Errorf("relay: default server %q is not configured", cfg.DefaultServer)
	}
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("relay: default username is required")
	}

	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	return &GomailProvider{logger: logger, cfg: cfg}, nil
}

// OpenSession implements Provider.
func (p *GomailProvider) OpenSession(username, password, serverName string) (Session, error) {
	server, ok := p.cfg.ServerByName(serverName)
	if !ok {
		return nil, fmt.Errorf("relay: server %q is not configured", serverName)
	}
	return p.session(server, username, password), nil
}

// OpenDefaultSession implements Provider.
func (p *GomailProvider) OpenDefaultSession() (Session, error) {
	server, ok := p.cfg.Default()
	if !ok {
		return nil, fmt.Errorf("relay: default server %q is not configured", p.cfg.DefaultServer)
	}
	return p.session(server, p.cfg.Username, p.cfg.Password), nil
}

// DefaultServer implements Provider.
func (p *GomailProvider) DefaultServer() ServerInfo {
	server, _ := p.cfg.Default()
	return ServerInfo{
		Name:     server.Name,
		Host:     server.Host,
		Port:     server.Port,
		Username: p.cfg.Username,
	}
}

// ServerExists implements Provider.
func (p *GomailProvider) ServerExists(name string) bool {
	_, ok := p.cfg.ServerByName(name)
	return ok
}

func (p *GomailProvider) session(server config.RelayServer, username, password string) *gomailSession {
	return &gomailSession{
		logger: p.logger.With().Str("relay_server", server.Name).Logger(),
		dialer: gomail.NewDialer(server.Host, server.Port, username, password),
	}
}

type gomailSession struct {
	logger zerolog.Logger
	dialer *gomail.Dialer
}

// Send delivers the message through SMTP. Failures reported by the relay are
// wrapped with the package sentinels so callers can classify them; context
// cancellation is returned unwrapped.
func (s *gomailSession) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return WrapMessaging(errors.New("message is required"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.IsHTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Debug().
			Str("recipient", msg.To).
			Err(err).
			Msg("relay send failed")
		return classify(err)
	}

	return nil
}

// classify maps an SMTP error onto the relay sentinels. Reply codes that
// indicate rejected credentials become authentication failures; everything
// else the relay reports is a messaging failure.
func classify(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && isAuthCode(tpErr.Code) {
		return WrapAuthentication(err)
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "username and password not accepted") {
		return WrapAuthentication(err)
	}

	return WrapMessaging(err)
}

func isAuthCode(code int) bool {
	switch code {
	case 530, 534, 535, 538:
		return true
	default:
		return false
	}
}
