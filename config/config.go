// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads, saves and validates the fee router process
// configuration. The on-disk format is one "key = value" pair per line;
// blank lines and lines starting with '#' are ignored.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ledger backends.
const (
	StoreBolt     = "bolt"
	StorePostgres = "postgres"
)

// MaxPageSize is the largest page that still fits one payout transaction
// together with the creator transfer.
const MaxPageSize = 15

// Config is the fee router process configuration.
type Config struct {
	DataDir string // datadir

	Cluster   string  // cluster
	RPCURL    string  // rpcurl; empty uses the cluster preset
	RPCRate   float64 // rpcrate; requests per second, 0 uses the cluster preset
	ProgramID string  // programid; base58, required to derive stream addresses

	Keypair     string // keypair; fee payer keypair file
	Authority   string // authority; treasury authority keypair file, empty = payer
	StreamsFile string // streams; JSON streams manifest, empty = <datadir>/streams.json

	Store       string // store
	PostgresDSN string // pgdsn

	PageSize            int // pagesize
	PrefetchConcurrency int // prefetch

	MetricsAddr string // metrics; empty disables the endpoint
	LogLevel    string // loglevel
	SentryDSN   string // sentrydsn
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:             DefaultDataDir(),
		Cluster:             "devnet",
		Store:               StoreBolt,
		PageSize:            MaxPageSize,
		PrefetchConcurrency: 8,
		MetricsAddr:         ":2112",
		LogLevel:            "info",
	}
}

// DefaultDataDir returns ~/.feerouter, or .feerouter in the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".feerouter"
	}
	return filepath.Join(home, ".feerouter")
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LedgerPath returns the bolt ledger file inside the data directory.
func (c Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// ReceiptsPath returns the payout receipt archive directory.
func (c Config) ReceiptsPath() string {
	return filepath.Join(c.DataDir, "receipts")
}

// StreamsPath returns the streams manifest location.
func (c Config) StreamsPath() string {
	if c.StreamsFile != "" {
		return c.StreamsFile
	}
	return filepath.Join(c.DataDir, "streams.json")
}

// SlogLevel maps LogLevel onto a slog level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// LoadConfig reads the config file at path. Keys missing from the file keep
// their DefaultConfig values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", err, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d", err, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "datadir":
		c.DataDir = value
	case "cluster":
		c.Cluster = value
	case "rpcurl":
		c.RPCURL = value
	case "rpcrate":
		c.RPCRate, err = parseFloat(key, value)
	case "programid":
		c.ProgramID = value
	case "keypair":
		c.Keypair = value
	case "authority":
		c.Authority = value
	case "streams":
		c.StreamsFile = value
	case "store":
		c.Store = value
	case "pgdsn":
		c.PostgresDSN = value
	case "pagesize":
		c.PageSize, err = parseInt(key, value)
	case "prefetch":
		c.PrefetchConcurrency, err = parseInt(key, value)
	case "metrics":
		c.MetricsAddr = value
	case "loglevel":
		c.LogLevel = value
	case "sentrydsn":
		c.SentryDSN = value
	}
	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s = %q", ErrInvalidValue, key, value)
	}
	return n, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s = %q", ErrInvalidValue, key, value)
	}
	return f, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed. The
// file may hold a database password, so it is written owner-only.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Fee Router Configuration\n\n")
	kv := func(key, value string) { fmt.Fprintf(&b, "%s = %s\n", key, value) }

	kv("datadir", cfg.DataDir)
	b.WriteString("\n# Chain\n")
	kv("cluster", cfg.Cluster)
	kv("rpcurl", cfg.RPCURL)
	kv("rpcrate", strconv.FormatFloat(cfg.RPCRate, 'f', -1, 64))
	kv("programid", cfg.ProgramID)
	kv("keypair", cfg.Keypair)
	kv("authority", cfg.Authority)
	kv("streams", cfg.StreamsFile)
	b.WriteString("\n# Ledger\n")
	kv("store", cfg.Store)
	kv("pgdsn", cfg.PostgresDSN)
	b.WriteString("\n# Distribution\n")
	kv("pagesize", strconv.Itoa(cfg.PageSize))
	kv("prefetch", strconv.Itoa(cfg.PrefetchConcurrency))
	b.WriteString("\n# Observability\n")
	kv("metrics", cfg.MetricsAddr)
	kv("loglevel", cfg.LogLevel)
	kv("sentrydsn", cfg.SentryDSN)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
