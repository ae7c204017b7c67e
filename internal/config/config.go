package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the mail templater service.
// It is constructed once at process start and passed explicitly into the
// components that need it; nothing reads ambient state afterwards.
type Config struct {
	App          AppConfig
	Templates    TemplateConfig
	Confirmation ConfirmationConfig
	Relay        RelayConfig
	Storage      StorageConfig
	Kafka        KafkaConfig
	Worker       WorkerConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// TemplateConfig holds the placeholder delimiters and the upper bound applied
// to rendered message bodies.
type TemplateConfig struct {
	PlaceholderPrefix string
	PlaceholderSuffix string
	MessageMaxLength  int
}

// ConfirmationConfig points confirmation links at the application endpoint
// that handles them.
type ConfirmationConfig struct {
	BaseURL string
}

// RelayServer describes one configured outbound relay.
type RelayServer struct {
	Name string
	Host string
	Port int
}

// RelayConfig enumerates the known relay servers plus the default identity
// used when a send call carries no explicit credentials.
type RelayConfig struct {
	Servers       []RelayServer
	DefaultServer string
	Username      string
	Password      string
}

// ServerByName returns the named relay server.
func (c RelayConfig) ServerByName(name string) (RelayServer, bool) {
	for _, s := range c.Servers {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return RelayServer{}, false
}

// Default returns the configured default relay server.
func (c RelayConfig) Default() (RelayServer, bool) {
	return c.ServerByName(c.DefaultServer)
}

// StorageConfig locates the sqlite database backing templates and history.
type StorageConfig struct {
	Path string
}

// KafkaConfig defines broker information and the bulk-send topics.
type KafkaConfig struct {
	Brokers       []string
	RequestTopic  string
	ReportTopic   string
	DLQTopic      string
	ConsumerGroup string
}

// WorkerConfig bounds how many bulk-send jobs are processed concurrently.
// Recipients within a single job are always processed sequentially.
type WorkerConfig struct {
	JobConcurrency int
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Templates.PlaceholderPrefix = ldr.getString("TEMPLATE_PLACEHOLDER_PREFIX", "${", false)
	cfg.Templates.PlaceholderSuffix = ldr.getString("TEMPLATE_PLACEHOLDER_SUFFIX", "}", false)
	cfg.Templates.MessageMaxLength = ldr.getInt("TEMPLATE_MESSAGE_MAX_LENGTH", 10000, false)

	cfg.Confirmation.BaseURL = ldr.getString("CONFIRMATION_BASE_URL", "", true)

	cfg.Relay.Servers = ldr.getRelayServers("RELAY_SERVERS")
	cfg.Relay.DefaultServer = ldr.getString("RELAY_DEFAULT_SERVER", "", true)
	cfg.Relay.Username = ldr.getString("RELAY_USERNAME", "", true)
	cfg.Relay.Password = ldr.getString("RELAY_PASSWORD", "", true)

	cfg.Storage.Path = ldr.getString("STORAGE_SQLITE_PATH", "mail-templater.db", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", true)
	cfg.Kafka.RequestTopic = ldr.getString("KAFKA_SEND_REQUEST_TOPIC", "", true)
	cfg.Kafka.ReportTopic = ldr.getString("KAFKA_SEND_REPORT_TOPIC", "", true)
	cfg.Kafka.DLQTopic = ldr.getString("KAFKA_SEND_DLQ_TOPIC", "", true)
	cfg.Kafka.ConsumerGroup = ldr.getString("SEND_CONSUMER_GROUP", "", true)

	cfg.Worker.JobConcurrency = ldr.getInt("JOB_CONCURRENCY", 4, false)

	if cfg.Templates.PlaceholderPrefix == "" {
		ldr.addError("TEMPLATE_PLACEHOLDER_PREFIX must not be empty")
	}
	if cfg.Templates.PlaceholderSuffix == "" {
		ldr.addError("TEMPLATE_PLACEHOLDER_SUFFIX must not be empty")
	}
	if cfg.Templates.MessageMaxLength <= 0 {
		ldr.addError("TEMPLATE_MESSAGE_MAX_LENGTH must be positive")
	}
	if cfg.Relay.DefaultServer != "" {
		if _, ok := cfg.Relay.ServerByName(cfg.Relay.DefaultServer); !ok {
			ldr.addError(fmt.Sprintf("RELAY_DEFAULT_SERVER %q is not listed in RELAY_SERVERS", cfg.Relay.DefaultServer))
		}
	}
	if cfg.Worker.JobConcurrency < 1 {
		ldr.addError("JOB_CONCURRENCY must be >= 1")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

// getRelayServers parses RELAY_SERVERS entries of the form "name=host:port",
// comma separated.
func (l *envLoader) getRelayServers(key string) []RelayServer {
	raw := l.getString(key, "", true)
	if raw == "" {
		return nil
	}

	var servers []RelayServer
	seen := make(map[string]struct{})
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addr, ok := strings.Cut(entry, "=")
		if !ok {
			l.addError(fmt.Sprintf("%s entry %q must have the form name=host:port", key, entry))
			continue
		}
		name = strings.TrimSpace(name)
		host, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
		if err != nil {
			l.addError(fmt.Sprintf("%s entry %q has an invalid address: %v", key, entry, err))
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			l.addError(fmt.Sprintf("%s entry %q has an invalid port", key, entry))
			continue
		}
		if name == "" {
			l.addError(fmt.Sprintf("%s entry %q has an empty name", key, entry))
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			l.addError(fmt.Sprintf("%s lists server %q more than once", key, name))
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		servers = append(servers, RelayServer{Name: name, Host: host, Port: port})
	}

	if len(servers) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one server", key))
	}

	return servers
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
