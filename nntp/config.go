package nntp

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Config describes how to reach and authenticate against a single NNTP
// server, tagged for decoding from a generic map (mapstructure) and for
// struct validation (validate). Open does not take a Config, and the pool
// uses its own nntppool.Config: callers pass Host, Port and UseTLS to Open
// and the credentials to Connection.Authenticate themselves.
type Config struct {
	// Host is the server's hostname or IP address.
	Host string `mapstructure:"host" validate:"required"`

	// Port is the server's TCP port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// UseTLS wraps the socket in TLS immediately on connect (implicit TLS,
	// not STARTTLS).
	UseTLS bool `mapstructure:"use_tls"`

	// Username and Password are an optional AUTHINFO USER/PASS credential
	// pair. Both must be set together or both left empty.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Validate checks the struct tags above and the username/password
// both-or-neither invariant that validator's tag language can't express
// directly.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("nntp: invalid config: %w", err)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("nntp: invalid config: username and password must both be set or both be empty")
	}
	return nil
}

// ConfigFromMap decodes a generic map (as parsed from YAML, TOML, or JSON by
// a caller) into a Config using the mapstructure tags above, then validates
// the result. Unknown keys are rejected so a typo in a config file surfaces
// immediately instead of silently falling back to a zero value.
func ConfigFromMap(data map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, fmt.Errorf("nntp: building config decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return Config{}, fmt.Errorf("nntp: decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
