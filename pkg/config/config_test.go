package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabtext/pkg/errors"
	"collabtext/pkg/session"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		expected Config
		errMsg   string
	}{
		{
			name:     "NoFile",
			expected: Default(),
		},
		{
			name: "File",
			file: "server: https://collab.example.com\nnackPolicy: resync\n",
			expected: Config{
				Server:       "https://collab.example.com",
				Store:        "~/.collabtext/state.db",
				NackPolicy:   "resync",
				RedisChannel: "collabtext.events",
			},
		},
		{
			name: "EnvOverridesFile",
			file: "server: https://collab.example.com\n",
			env: map[string]string{
				ServerEnv:       "http://10.0.0.5:8000",
				RedisAddrEnv:    "localhost:6379",
				RedisChannelEnv: "  ",
			},
			expected: Config{
				Server:       "http://10.0.0.5:8000",
				Store:        "~/.collabtext/state.db",
				NackPolicy:   "ignore",
				RedisAddr:    "localhost:6379",
				RedisChannel: "collabtext.events",
			},
		},
		{
			name:   "UnknownField",
			file:   "server: http://localhost\nretries: 3\n",
			errMsg: "Configuration file could not be parsed",
		},
		{
			name:   "WrongType",
			file:   "server: [1, 2]\n",
			errMsg: "Configuration file could not be parsed",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			for _, env := range []string{ServerEnv, StoreEnv, NackPolicyEnv, RedisAddrEnv, RedisChannelEnv} {
				t.Setenv(env, test.env[env])
			}

			path := "/home/user/.collabtext.yaml"
			if test.file != "" {
				require.NoError(t, afero.WriteFile(fs, path, []byte(test.file), 0644))
			}

			cfg, err := Load(path)
			if test.errMsg != "" {
				require.Error(t, err)
				_, friendly := errors.GetFriendlyError(err)
				assert.True(t, friendly)
				assert.Contains(t, err.Error(), test.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, cfg)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{StoreEnv: "/tmp/state.db", NackPolicyEnv: "resync"}
	cfg.ApplyEnv(func(key string) string { return env[key] })

	assert.Equal(t, "/tmp/state.db", cfg.Store)
	assert.Equal(t, "resync", cfg.NackPolicy)
	assert.Equal(t, DefaultServer, cfg.Server)
}

func TestValidate(t *testing.T) {
	valid := Default()
	assert.NoError(t, valid.Validate())

	policy, err := valid.Policy()
	require.NoError(t, err)
	assert.Equal(t, session.NackIgnore, policy)

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"NoServer", func(c *Config) { c.Server = "" }, "missing required field: server"},
		{"BadScheme", func(c *Config) { c.Server = "ftp://files.example.com" }, `The server "ftp://files.example.com" is not a valid origin.`},
		{"BadPolicy", func(c *Config) { c.NackPolicy = "retry" }, `Invalid nack policy: unknown nack policy "retry"`},
		{"NoStore", func(c *Config) { c.Store = "" }, "missing required field: store"},
	}
	for _, test := range tests {
		cfg := Default()
		test.modify(&cfg)
		err := cfg.Validate()
		require.Error(t, err, test.name)
		assert.Contains(t, err.Error(), test.errMsg, test.name)
	}
}

func TestWrite(t *testing.T) {
	fs = afero.NewMemMapFs()
	for _, env := range []string{ServerEnv, StoreEnv, NackPolicyEnv, RedisAddrEnv, RedisChannelEnv} {
		t.Setenv(env, "")
	}

	cfg := Default()
	cfg.Server = "https://collab.example.com"
	cfg.NackPolicy = "resync"
	require.NoError(t, Write("/etc/collabtext.yaml", cfg))

	loaded, err := Load("/etc/collabtext.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
