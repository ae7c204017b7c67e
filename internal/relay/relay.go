// Package relay abstracts the outbound mail relay. A Provider resolves
// authenticated sessions from explicit credentials or the configured default;
// a Session delivers one message at a time.
package relay

import "context"

// Message is the fully rendered email handed to a relay session.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

// Session is an authenticated channel to an outbound relay. Send delivers the
// supplied message or returns a classified error (see errors.go).
type Session interface {
	Send(ctx context.Context, msg *Message) error
}

// ServerInfo describes a configured relay server.
type ServerInfo struct {
	Name     string
	Host     string
	Port     int
	Username string
}

// Provider yields relay sessions and exposes the configuration surface the
// orchestrator needs for pre-flight validation.
type Provider interface {
	// OpenSession yields a session authenticated with the supplied
	// credentials against the named server.
	OpenSession(username, password, serverName string) (Session, error)
	// OpenDefaultSession yields a session using the configured default
	// server and identity.
	OpenDefaultSession() (Session, error)
	// DefaultServer reports the configured default relay server.
	DefaultServer() ServerInfo
	// ServerExists reports whether a relay server with the given name is
	// configured.
	ServerExists(name string) bool
}
