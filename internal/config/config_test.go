package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "selcs.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[auth]
user = "12345"
key = "secret"
auth_url = "https://auth.example/"

[cache]
path = "/tmp/endpoints.db"

[transfers]
parallel_uploads = 4
segment_size = "128M"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Auth.User)
	assert.Equal(t, "secret", cfg.Auth.Key)
	assert.Equal(t, "https://auth.example/", cfg.Auth.AuthURL)
	assert.Equal(t, "/tmp/endpoints.db", cfg.Cache.Path)
	assert.Equal(t, 4, cfg.Transfers.ParallelUploads)
	assert.Equal(t, "128M", cfg.Transfers.SegmentSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
[auth]
user = "12345"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Zero(t, cfg.Transfers.ParallelUploads)
}

func TestLoad_UnknownKeysFatal(t *testing.T) {
	path := writeConfig(t, `
[auth]
user = "12345"
usr_name = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config keys")
	assert.Contains(t, err.Error(), "auth.usr_name")
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "verbose"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoad_InvalidSegmentSize(t *testing.T) {
	path := writeConfig(t, `
[transfers]
segment_size = "lots"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment_size")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate_NegativeWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transfers.ParallelUploads = -1

	require.Error(t, Validate(cfg))
}

func TestResolve_Precedence(t *testing.T) {
	path := writeConfig(t, `
[auth]
user = "file-user"
key = "file-key"
`)

	t.Run("file only", func(t *testing.T) {
		cfg, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
		require.NoError(t, err)
		assert.Equal(t, "file-user", cfg.Auth.User)
		assert.Equal(t, "file-key", cfg.Auth.Key)
	})

	t.Run("env beats file", func(t *testing.T) {
		cfg, err := Resolve(EnvOverrides{ConfigPath: path, User: "env-user"}, CLIOverrides{})
		require.NoError(t, err)
		assert.Equal(t, "env-user", cfg.Auth.User)
		assert.Equal(t, "file-key", cfg.Auth.Key)
	})

	t.Run("flag beats env", func(t *testing.T) {
		cfg, err := Resolve(
			EnvOverrides{ConfigPath: path, User: "env-user", Key: "env-key"},
			CLIOverrides{User: "flag-user"},
		)
		require.NoError(t, err)
		assert.Equal(t, "flag-user", cfg.Auth.User)
		assert.Equal(t, "env-key", cfg.Auth.Key)
	})

	t.Run("CLI config path beats env config path", func(t *testing.T) {
		other := writeConfig(t, `
[auth]
user = "other-user"
`)

		cfg, err := Resolve(
			EnvOverrides{ConfigPath: path},
			CLIOverrides{ConfigPath: other},
		)
		require.NoError(t, err)
		assert.Equal(t, "other-user", cfg.Auth.User)
	})
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/selcs.toml")
	t.Setenv(EnvUser, "12345")
	t.Setenv(EnvKey, "secret")
	t.Setenv(EnvAuthURL, "https://auth.example/")

	env := ReadEnvOverrides()

	assert.Equal(t, "/tmp/selcs.toml", env.ConfigPath)
	assert.Equal(t, "12345", env.User)
	assert.Equal(t, "secret", env.Key)
	assert.Equal(t, "https://auth.example/", env.AuthURL)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in       string
		expected int64
		wantErr  bool
	}{
		{"", 0, false},
		{"1024", 1024, false},
		{"4K", 4 << 10, false},
		{"4KB", 4 << 10, false},
		{"256M", 256 << 20, false},
		{"256mb", 256 << 20, false},
		{"1G", 1 << 30, false},
		{" 2 G ", 2 << 30, false},
		{"-5M", 0, true},
		{"lots", 0, true},
		{"12X", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
