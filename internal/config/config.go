// Package config provides agent configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathledger/pathledger/internal/errors"
	"github.com/pathledger/pathledger/internal/event"
)

// Config holds the agent configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Watch  WatchConfig
	Ledger LedgerConfig
	Remote RemoteConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // "pretty" or "json"; empty follows the environment
}

// WatchConfig holds directory watch configuration.
type WatchConfig struct {
	// Root is the directory (or single file) to watch.
	Root string
	// EventTypes are the subscribed change kinds.
	EventTypes []event.Type
	// IgnorePatterns are glob patterns excluded from watching. Nil keeps
	// the watcher defaults.
	IgnorePatterns []string
	// IgnoreHidden skips dotfiles and dot-directories.
	IgnoreHidden bool
}

// LedgerConfig holds local ledger storage configuration.
type LedgerConfig struct {
	// DataPath is the directory for the ledger database.
	DataPath string
}

// RemoteConfig holds remote ledger endpoint configuration.
type RemoteConfig struct {
	Endpoint string
	AgentID  string
	Timeout  time.Duration
	ClockRPS float64
}

// defaultEventTypes is the subscription used when none is configured:
// everything except the noisy open notifications.
const defaultEventTypes = "attrib,create,delete,moved_from,moved_to,write"

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (pretty, json)")
	watchRoot := flag.String("watch-root", "", "Directory to watch")
	eventTypes := flag.String("event-types", "", "Comma-separated event types to subscribe to")
	ignoreHidden := flag.String("ignore-hidden", "", "Skip hidden files and directories (default: true)")
	ignorePatterns := flag.String("ignore-patterns", "", "Comma-separated glob patterns to exclude")
	dataPath := flag.String("data-path", "", "Directory for the local ledger database")
	endpoint := flag.String("rpc-endpoint", "", "Remote ledger JSON-RPC endpoint")
	agentID := flag.String("agent-id", "", "Agent identity (default: generated)")
	rpcTimeout := flag.String("rpc-timeout", "", "Remote call timeout (default: 30s)")
	clockRPS := flag.String("clock-rps", "", "Remote clock reads per second (default: 2)")
	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Watch: WatchConfig{
			Root:         getConfigValue(*watchRoot, "WATCH_ROOT", ""),
			IgnoreHidden: getBoolConfigValue(*ignoreHidden, "IGNORE_HIDDEN", true),
		},
		Ledger: LedgerConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Remote: RemoteConfig{
			Endpoint: getConfigValue(*endpoint, "RPC_ENDPOINT", ""),
			AgentID:  getConfigValue(*agentID, "AGENT_ID", ""),
			ClockRPS: float64(getIntConfigValue(*clockRPS, "CLOCK_RPS", 2)),
		},
	}

	// Nil means "watcher defaults"; an explicit value, even empty,
	// replaces them.
	if patterns := getConfigValue(*ignorePatterns, "IGNORE_PATTERNS", ""); patterns != "" {
		cfg.Watch.IgnorePatterns = strings.Split(patterns, ",")
	}

	// Parse the event type subscription.
	names := strings.Split(getConfigValue(*eventTypes, "EVENT_TYPES", defaultEventTypes), ",")
	types, err := event.ParseTypes(names)
	if err != nil {
		return nil, err
	}
	cfg.Watch.EventTypes = types

	// Parse the remote timeout.
	timeoutStr := getConfigValue(*rpcTimeout, "RPC_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, errors.Configurationf("invalid rpc timeout %q: %v", timeoutStr, err)
	}
	cfg.Remote.Timeout = timeout

	// A fresh agent identity persists only for the process lifetime;
	// set AGENT_ID to keep the same ledger account across restarts.
	if cfg.Remote.AgentID == "" {
		cfg.Remote.AgentID = uuid.NewString()
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return errors.Configurationf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return errors.Configurationf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Watch.Root == "" {
		return errors.Configuration("WATCH_ROOT is required")
	}

	if len(c.Watch.EventTypes) == 0 {
		return errors.Configuration("at least one event type must be subscribed")
	}

	if c.Remote.Endpoint == "" {
		return errors.Configuration("RPC_ENDPOINT is required")
	}

	return nil
}

// expandPaths expands ~ and makes the watch and data paths absolute.
// The data path defaults to ~/.pathledger/data.
func (c *Config) expandPaths() error {
	root, err := expandPath(c.Watch.Root, "")
	if err != nil {
		return err
	}
	c.Watch.Root = root

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return errors.Wrap(err, errors.CodeConfiguration, "failed to get home directory")
	}
	defaultData := filepath.Join(homeDir, ".pathledger", "data")

	data, err := expandPath(c.Ledger.DataPath, defaultData)
	if err != nil {
		return err
	}
	c.Ledger.DataPath = data
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, errors.CodeConfiguration, "failed to get home directory")
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", errors.Wrap(err, errors.CodeConfiguration, "failed to get absolute path")
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return errors.Configurationf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return errors.Wrapf(err, errors.CodeConfiguration, "failed to set env var %s", key)
			}
		}
	}

	return scanner.Err()
}
