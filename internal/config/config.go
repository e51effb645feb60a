package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for warnbridge.
//
// All configuration is loaded from YAML and can be overridden by
// environment variables (see Load).
type Config struct {
	Daemon    DaemonConfig              `yaml:"daemon"`
	Logging   LoggingConfig             `yaml:"logging"`
	MQTT      MQTTConfig                `yaml:"mqtt"`
	Database  DatabaseConfig            `yaml:"database"`
	InfluxDB  InfluxDBConfig            `yaml:"influxdb"`
	API       APIConfig                 `yaml:"api"`
	Security  SecurityConfig            `yaml:"security"`
	Defaults  DefaultsConfig            `yaml:"defaults"`
	Services  map[string]ServiceConfig  `yaml:"services"`
	Routes    map[string]RouteConfig    `yaml:"routes"`
	Failover  FailoverConfig            `yaml:"failover"`
	Periodic  map[string]PeriodicConfig `yaml:"periodic"`
	Templates TemplatesConfig           `yaml:"templates"`

	// RouteOrder records the order routes appeared in the "routes" mapping
	// of the source YAML document. yaml.v3 (like every YAML decoder) loads
	// a mapping into a Go map, which discards key order; Matcher.Subscribe
	// call order determines Match()'s result order for two routes matching
	// the same topic (see internal/match), so that order has to be captured
	// explicitly rather than recovered from the decoded Routes map itself.
	// Populated by UnmarshalYAML. Configs built directly in Go (as in
	// tests) leave this nil; NewRegistry falls back to a sorted key order
	// in that case.
	RouteOrder []string `yaml:"-"`
}

// UnmarshalYAML decodes into Config normally, then makes a second pass
// over the raw document to record the declaration order of the "routes"
// mapping into RouteOrder, since decoding into the Routes map discards it.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config // avoid recursing back into this method

	// Seed from *c (already carrying defaultConfig()'s defaults) so that
	// fields absent from the YAML document keep their defaults rather than
	// being reset to zero values.
	decoded := rawConfig(*c)
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*c = Config(decoded)
	c.RouteOrder = routesKeyOrder(node)
	return nil
}

// routesKeyOrder walks a mapping-node's top level looking for "routes" and
// returns its keys in document order. Returns nil if node isn't a mapping
// or has no "routes" key.
func routesKeyOrder(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "routes" {
			continue
		}
		routesNode := node.Content[i+1]
		if routesNode.Kind != yaml.MappingNode {
			return nil
		}
		order := make([]string, 0, len(routesNode.Content)/2)
		for j := 0; j+1 < len(routesNode.Content); j += 2 {
			order = append(order, routesNode.Content[j].Value)
		}
		return order
	}
	return nil
}

// TemplatesConfig locates the directory of named template files a
// route's template field resolves against.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// DaemonConfig contains process-identity settings.
type DaemonConfig struct {
	Name     string `yaml:"name"`
	ClientID string `yaml:"client_id"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// SkipRetained drops retained deliveries globally unless a route
	// overrides it with its own ignore_retained flag. Mirrors mqttwarn's
	// cf.skipretained.
	SkipRetained bool `yaml:"skip_retained"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DatabaseConfig contains the Delivery History Store's SQLite settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the metrics reporter.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains admin HTTP API server settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains the admin event stream's WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// SecurityConfig contains admin API security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	AdminUser AdminUserConfig `yaml:"admin_user"`
}

// JWTConfig contains JWT token settings for the admin API.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// AdminUserConfig holds the single operator account used to authenticate
// against the admin API. warnbridge has no multi-user model, so this
// account is the sole JWT subject the admin API ever issues tokens for.
type AdminUserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // argon2id hash, PHC string format
}

// DefaultsConfig holds the [defaults] section: global fallbacks applied
// when a route or service does not override them.
type DefaultsConfig struct {
	// QueueCapacity is the bounded capacity applied to every dispatch
	// queue.
	QueueCapacity int `yaml:"queue_capacity"`
	// RetryLimit is the per-route retry count before failover.
	RetryLimit int `yaml:"retry_limit"`
	// IgnoreRetained drops retained messages globally unless a route
	// explicitly overrides it.
	IgnoreRetained bool `yaml:"ignore_retained"`
	// BackoffBase is the base back-off delay before a retried Job
	// re-enters its queue.
	BackoffBase time.Duration `yaml:"backoff_base"`
	// ShutdownGrace bounds how long the Supervisor waits for queues to
	// drain before abandoning pending Jobs.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
	// StrictReferences controls how unresolved service/target references
	// are handled: true rejects them at load time as a fatal configuration
	// error, false logs and skips the offending route, continuing to load
	// the rest. Default: lenient.
	StrictReferences bool `yaml:"strict_references"`
}

// ServiceConfig is a named service instance.
type ServiceConfig struct {
	// Kind names the plugin implementation, e.g. "log", "file", "http".
	Kind string `yaml:"kind"`
	// Targets maps target-name to an ordered sequence of opaque
	// parameters whose meaning is defined by the plugin.
	Targets map[string][]any `yaml:"targets"`
	// QueueCapacity is decoded but not read by the dispatcher: every
	// queue, whatever its service, is sized by Defaults.QueueCapacity.
	QueueCapacity int `yaml:"queue_capacity"`
	// Options are service-level options passed to the plugin's init hook.
	Options map[string]any `yaml:"options"`
}

// RouteConfig is a named routing rule.
type RouteConfig struct {
	TopicPattern   string      `yaml:"topic_pattern"`
	Targets        TargetsSpec `yaml:"targets"`
	FilterFn       string      `yaml:"filter_fn"`
	DataMapFn      string      `yaml:"datamap_fn"`
	AllDataFn      string      `yaml:"alldata_fn"`
	ImageFn        string      `yaml:"image_fn"`
	FormatSpec     string      `yaml:"format"`
	FormatFn       string      `yaml:"format_fn"`
	Template       string      `yaml:"template"`
	Priority       int         `yaml:"priority"`
	IgnoreRetained *bool       `yaml:"ignore_retained"`
	RetryLimit     *int        `yaml:"retry_limit"`
}

// FailoverConfig is the pseudo-route whose targets receive Jobs that
// exhausted retries.
type FailoverConfig struct {
	Targets []string `yaml:"targets"`
}

// PeriodicConfig is one declared periodic task.
type PeriodicConfig struct {
	Function        string       `yaml:"function"`
	IntervalSeconds float64      `yaml:"interval_seconds"`
	RunImmediately  bool         `yaml:"run_immediately"`
	Topic           string       `yaml:"topic"`
	Targets         *TargetsSpec `yaml:"targets"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			Name:     "warnbridge",
			ClientID: "warnbridge",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "warnbridge",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/warnbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 1 << 10,
				PingInterval:   30,
				PongTimeout:    60,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		Defaults: DefaultsConfig{
			QueueCapacity: 1000,
			RetryLimit:    0,
			BackoffBase:   2 * time.Second,
			ShutdownGrace: 10 * time.Second,
		},
		Templates: TemplatesConfig{
			Dir: "./templates",
		},
	}
}

// applyEnvOverrides applies environment variable overrides. Pattern:
// WARNBRIDGE_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WARNBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WARNBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WARNBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("WARNBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("WARNBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("WARNBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("WARNBRIDGE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for structural and cross-referential
// errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Daemon.ClientID == "" {
		errs = append(errs, "daemon.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Enabled {
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when api.enabled (set WARNBRIDGE_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}
	if len(c.Services) == 0 {
		errs = append(errs, "at least one service must be declared")
	}

	for name, route := range c.Routes {
		if route.TopicPattern == "" {
			errs = append(errs, fmt.Sprintf("route %q: topic_pattern is required", name))
		}
	}

	for name, task := range c.Periodic {
		if task.Function == "" {
			errs = append(errs, fmt.Sprintf("periodic %q: function is required", name))
		}
		if task.IntervalSeconds <= 0 {
			errs = append(errs, fmt.Sprintf("periodic %q: interval_seconds must be positive", name))
		}
	}

	if c.Defaults.StrictReferences {
		for name, route := range c.Routes {
			for _, err := range ValidateStaticTargetRefs(route.Targets, c.Services) {
				errs = append(errs, fmt.Sprintf("route %q: %s", name, err))
			}
		}
		for _, t := range c.Failover.Targets {
			if err := ValidateStaticTargetRef(t, c.Services); err != nil {
				errs = append(errs, fmt.Sprintf("failover: %s", err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateStaticTargetRefs checks a route's static target list against
// declared services, returning one error per unresolved reference.
// Template and function-computed targets are resolved at runtime and
// cannot be checked at load time.
//
// Exported so the route registry can run the same check in lenient mode,
// logging and skipping each offending reference instead of failing load.
func ValidateStaticTargetRefs(spec TargetsSpec, services map[string]ServiceConfig) []error {
	if spec.Kind != TargetsStatic {
		return nil
	}
	var errs []error
	for _, ref := range spec.Static {
		if err := ValidateStaticTargetRef(ref, services); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidateStaticTargetRef validates a single "service:target" string
// against declared services.
func ValidateStaticTargetRef(ref string, services map[string]ServiceConfig) error {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid target reference %q (want service:target)", ref)
	}
	svc, ok := services[parts[0]]
	if !ok {
		return fmt.Errorf("references unknown service %q", parts[0])
	}
	if _, ok := svc.Targets[parts[1]]; !ok {
		return fmt.Errorf("references unknown target %q in service %q", parts[1], parts[0])
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration { return time.Duration(c.API.Timeouts.Read) * time.Second }

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration { return time.Duration(c.API.Timeouts.Write) * time.Second }

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration { return time.Duration(c.API.Timeouts.Idle) * time.Second }
