package relay

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Scenario enumerates the supported mock behaviours. The default scenario is
// success unless overridden per recipient or via options.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioAuth      Scenario = "auth"
	ScenarioMessaging Scenario = "messaging"
	ScenarioRuntime   Scenario = "runtime"
	ScenarioUnknown   Scenario = "unknown"
)

// MockOption customises the mock provider at construction time.
type MockOption func(*MockProvider)

// WithDefaultScenario configures the behaviour applied to recipients without
// an explicit scenario.
func WithDefaultScenario(s Scenario) MockOption {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithRecipientScenario pins the behaviour for one recipient address.
func WithRecipientScenario(email string, s Scenario) MockOption {
	return func(p *MockProvider) {
		p.scenarios[strings.ToLower(email)] = s
	}
}

// WithServers overrides the set of server names the provider claims to know.
func WithServers(names ...string) MockOption {
	return func(p *MockProvider) {
		p.servers = make(map[string]struct{}, len(names))
		for _, n := range names {
			p.servers[strings.ToLower(n)] = struct{}{}
		}
	}
}

// MockProvider implements a deterministic relay suitable for local
// development and automated testing. Behaviour is controlled per recipient
// without making network calls, and every delivered message is retained for
// inspection.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	scenarios       map[string]Scenario
	servers         map[string]struct{}
	defaultInfo     ServerInfo

	mu   sync.Mutex
	sent []Message
}

// NewMockProvider constructs a mock relay provider. By default it knows a
// single server named "mock" which is also the default, and every send
// succeeds.
func NewMockProvider(logger zerolog.Logger, opts ...MockOption) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		scenarios:       make(map[string]Scenario),
		servers:         map[string]struct{}{"mock": {}},
		defaultInfo: ServerInfo{
			Name:     "mock",
			Host:     "localhost",
			Port:     25,
			Username: "noreply@localhost",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// OpenSession implements Provider.
func (p *MockProvider) OpenSession(username, _, serverName string) (Session, error) {
	if !p.ServerExists(serverName) {
		return nil, fmt.Errorf("relay: server %q is not configured", serverName)
	}
	return &mockSession{provider: p, username: username}, nil
}

// OpenDefaultSession implements Provider.
func (p *MockProvider) OpenDefaultSession() (Session, error) {
	return &mockSession{provider: p, username: p.defaultInfo.Username}, nil
}

// DefaultServer implements Provider.
func (p *MockProvider) DefaultServer() ServerInfo {
	return p.defaultInfo
}

// ServerExists implements Provider.
func (p *MockProvider) ServerExists(name string) bool {
	_, ok := p.servers[strings.ToLower(name)]
	return ok
}

// Sent returns a copy of every message delivered so far.
func (p *MockProvider) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *MockProvider) scenarioFor(email string) Scenario {
	if s, ok := p.scenarios[strings.ToLower(email)]; ok {
		return s
	}
	return p.defaultScenario
}

type mockSession struct {
	provider *MockProvider
	username string
}

// Send implements Session with the scenario configured for the recipient.
func (s *mockSession) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return WrapMessaging(errors.New("message is required"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scenario := s.provider.scenarioFor(msg.To)
	s.provider.logger.Debug().
		Str("provider", "mock_relay").
		Str("scenario", string(scenario)).
		Str("recipient", msg.To).
		Msg("mock relay invoked")

	switch scenario {
	case ScenarioAuth:
		return WrapAuthentication(errors.New("mock: 535 authentication credentials invalid"))
	case ScenarioMessaging:
		return WrapMessaging(errors.New("mock: 451 requested action aborted, try again later"))
	case ScenarioRuntime:
		// Panics propagate to the dispatcher, which converts them into
		// runtime failures the same way a real fault would surface.
		panic("mock: simulated runtime fault")
	case ScenarioUnknown:
		return errors.New("mock: unclassified relay failure")
	default:
		s.provider.mu.Lock()
		s.provider.sent = append(s.provider.sent, *msg)
		s.provider.mu.Unlock()
		return nil
	}
}
