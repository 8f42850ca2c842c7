// Package config loads the client configuration. Values come from, in
// increasing order of precedence: built-in defaults, the YAML config file,
// environment variables, and command line flags.
package config

import (
	"os"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"collabtext/pkg/errors"
	"collabtext/pkg/observe"
	"collabtext/pkg/session"
	"collabtext/pkg/store"
	"collabtext/pkg/transport"
)

// DefaultPath is the path of the user config file.
const DefaultPath = "~/.collabtext.yaml"

// DefaultServer is the authority used when none is configured.
const DefaultServer = "http://localhost:8000"

// Environment variables that override the config file.
const (
	ServerEnv       = "COLLABTEXT_SERVER"
	StoreEnv        = "COLLABTEXT_STORE"
	NackPolicyEnv   = "COLLABTEXT_NACK_POLICY"
	RedisAddrEnv    = "REDIS_ADDR"
	RedisChannelEnv = "COLLABTEXT_REDIS_CHANNEL"
)

const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

var fs = afero.NewOsFs()

// Config is the client configuration.
type Config struct {
	// Server is the origin of the authority, e.g. "https://collab.example.com".
	Server string `json:"server"`

	// Store is the path of the local state database.
	Store string `json:"store"`

	// NackPolicy is "ignore" or "resync".
	NackPolicy string `json:"nackPolicy"`

	// RedisAddr, if set, enables publishing session events to Redis.
	RedisAddr string `json:"redisAddr,omitempty"`

	// RedisChannel is the Pub/Sub channel for session events.
	RedisChannel string `json:"redisChannel"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:       DefaultServer,
		Store:        store.DefaultPath,
		NackPolicy:   string(session.NackIgnore),
		RedisChannel: observe.DefaultRedisChannel,
	}
}

// Load returns the defaults overridden by the config file at path and then
// by the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, errors.WithContext(err, "expand config path")
	}

	configBytes, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, errors.WithContext(err, "read config")
	default:
		if err := yaml.UnmarshalStrict(configBytes, &cfg, yaml.DisallowUnknownFields); err != nil {
			return Config{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides cfg with every variable getenv reports as set.
func (cfg *Config) ApplyEnv(getenv func(string) string) {
	for env, field := range map[string]*string{
		ServerEnv:       &cfg.Server,
		StoreEnv:        &cfg.Store,
		NackPolicyEnv:   &cfg.NackPolicy,
		RedisAddrEnv:    &cfg.RedisAddr,
		RedisChannelEnv: &cfg.RedisChannel,
	} {
		if value := strings.TrimSpace(getenv(env)); value != "" {
			*field = value
		}
	}
}

// Validate checks that the configuration is usable.
func (cfg Config) Validate() error {
	if cfg.Server == "" {
		return errors.MissingFieldError{Field: "server"}
	}
	if _, err := transport.EndpointURL(cfg.Server, "probe"); err != nil {
		return errors.NewFriendlyError("The server %q is not a valid origin. "+
			"It should look like \"https://collab.example.com\".\n"+
			"The parser said: %s", cfg.Server, err)
	}
	if _, err := cfg.Policy(); err != nil {
		return errors.NewFriendlyError("Invalid nack policy: %s", err)
	}
	if cfg.Store == "" {
		return errors.MissingFieldError{Field: "store"}
	}
	return nil
}

// Policy returns the parsed nack policy.
func (cfg Config) Policy() (session.NackPolicy, error) {
	return session.ParseNackPolicy(cfg.NackPolicy)
}

// Write saves cfg to path as YAML.
func Write(path string, cfg Config) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}
	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}
	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
