package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Root:       "/data",
			EventTypes: []event.Type{event.Written},
		},
		Ledger: LedgerConfig{
			DataPath: "/var/lib/pathledger",
		},
		Remote: RemoteConfig{
			Endpoint: "http://localhost:8899",
			AgentID:  "agent-1",
			Timeout:  30 * time.Second,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_MissingWatchRoot(t *testing.T) {
	cfg := validConfig()
	cfg.Watch.Root = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestValidate_EmptyEventTypes(t *testing.T) {
	cfg := validConfig()
	cfg.Watch.EventTypes = nil

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestValidate_MissingEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.Endpoint = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestExpandPaths_DataPathDefault(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.DataPath = ""

	require.NoError(t, cfg.expandPaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, ".pathledger", "data"), cfg.Ledger.DataPath)
}

func TestExpandPaths_TildeExpansion(t *testing.T) {
	cfg := validConfig()
	cfg.Watch.Root = "~/watched"

	require.NoError(t, cfg.expandPaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "watched"), cfg.Watch.Root)
}

func TestExpandPaths_RelativePathMadeAbsolute(t *testing.T) {
	cfg := validConfig()
	cfg.Watch.Root = "relative/dir"

	require.NoError(t, cfg.expandPaths())

	assert.True(t, filepath.IsAbs(cfg.Watch.Root))
	assert.Contains(t, cfg.Watch.Root, "relative/dir")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Env var when flag is empty.
	os.Setenv("TEST_ENV_KEY", "env-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_ENV_KEY")      //nolint:errcheck // Test cleanup

	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Default when both are empty.
	result = getConfigValue("", "UNSET_ENV_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "UNSET", !tt.want))
		})
	}

	// Empty everywhere falls back to the default.
	assert.True(t, getBoolConfigValue("", "UNSET", true))
}

func TestGetIntConfigValue(t *testing.T) {
	// Flag value takes priority.
	assert.Equal(t, 7, getIntConfigValue("7", "UNSET", 2))

	// Env var when flag is empty.
	os.Setenv("TEST_INT_KEY", "5")      //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_INT_KEY")   //nolint:errcheck // Test cleanup
	assert.Equal(t, 5, getIntConfigValue("", "TEST_INT_KEY", 2))

	// Default when both are empty or unparseable.
	assert.Equal(t, 2, getIntConfigValue("", "UNSET", 2))
	assert.Equal(t, 2, getIntConfigValue("not-a-number", "UNSET", 2))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nTEST_LOAD_ENV_A=hello\nTEST_LOAD_ENV_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("TEST_LOAD_ENV_A") //nolint:errcheck // Test cleanup
		os.Unsetenv("TEST_LOAD_ENV_B") //nolint:errcheck // Test cleanup
	})

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("TEST_LOAD_ENV_A"))
	assert.Equal(t, "quoted", os.Getenv("TEST_LOAD_ENV_B"))
}

func TestLoadEnvFile_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_LOAD_ENV_C=file\n"), 0o600))

	os.Setenv("TEST_LOAD_ENV_C", "env")   //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_LOAD_ENV_C")  //nolint:errcheck // Test cleanup

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "env", os.Getenv("TEST_LOAD_ENV_C"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT A PAIR\n"), 0o600))

	require.Error(t, loadEnvFile(path))
}
