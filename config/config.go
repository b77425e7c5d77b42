// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger rules: defined in genesis, immutable for a ledger's lifetime
//   - Node settings: runtime configuration, can vary per operator
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Denomination constants.
// 1 coin = 10^8 base units. All ledger values are in base units.
const (
	Decimals = 8
	Coin     = 100_000_000 // 10^8 base units per coin
)

// Transaction encoding limits.
const (
	MaxTxInputs  = 2500 // Max inputs per transaction
	MaxTxOutputs = 2500 // Max outputs per transaction
)

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	DataDir     string `conf:"datadir"`
	GenesisFile string `conf:"genesis"`

	// Logging
	Log LogConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.aurum
//	macOS:   ~/Library/Application Support/Aurum
//	Windows: %APPDATA%\Aurum
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aurum"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Aurum")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Aurum")
		}
		return filepath.Join(home, "AppData", "Roaming", "Aurum")
	default:
		return filepath.Join(home, ".aurum")
	}
}

// UTXODir returns the UTXO database directory.
func (c *Config) UTXODir() string {
	return filepath.Join(c.DataDir, "utxo")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "aurum.conf")
}

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
