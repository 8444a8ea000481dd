package nntppool

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Config describes the server a Pool connects to and the fairness/keepalive
// knobs that govern it. Unlike nntp.Config, it carries a connection budget
// and the intervals that drive background sleep/wake/keepalive.
type Config struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	UseTLS   bool   `mapstructure:"use_tls"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// MaxConnections bounds the number of sockets the pool holds open at
	// once.
	MaxConnections int `mapstructure:"max_connections" validate:"required,min=1"`

	// KeepaliveIntervalMs is the period between idle-connection DATE
	// probes. Zero disables the keepalive loop entirely.
	KeepaliveIntervalMs int64 `mapstructure:"keepalive_interval_ms"`

	// IdleGracePeriodMs is how long the pool can go without any acquire
	// activity before a keepalive tick puts it to sleep. Zero disables
	// auto-sleep.
	IdleGracePeriodMs int64 `mapstructure:"idle_grace_period_ms"`
}

// DefaultConfig returns a Config for host:port with the keepalive and
// idle-grace defaults spec'd for the pool (60s keepalive, 5 minute idle
// grace). Callers that want the keepalive or auto-sleep disabled should
// zero the relevant field after calling this.
func DefaultConfig(host string, port int) Config {
	return Config{
		Host:                host,
		Port:                port,
		MaxConnections:      1,
		KeepaliveIntervalMs: 60_000,
		IdleGracePeriodMs:   300_000,
	}
}

// Validate checks the struct tags and the username/password both-or-neither
// invariant shared with nntp.Config.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("nntppool: invalid config: %w", err)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("nntppool: invalid config: username and password must both be set or both be empty")
	}
	return nil
}

// ConfigFromMap decodes a generic map into a Config, starting from
// DefaultConfig's keepalive/idle-grace values so a caller only needs to
// supply the fields it wants to override.
func ConfigFromMap(data map[string]any) (Config, error) {
	cfg := DefaultConfig("", 0)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, fmt.Errorf("nntppool: building config decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return Config{}, fmt.Errorf("nntppool: decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
