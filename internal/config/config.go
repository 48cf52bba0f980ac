// Package config loads the TOML configuration file both CLI
// entrypoints read, resolving the path from the LATTICE_CONFIG
// environment variable, then layering a handful of LATTICE_-prefixed
// env var overrides on top for container deployments where mounting a
// file is inconvenient.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvVar is the environment variable naming the TOML config file path.
const EnvVar = "LATTICE_CONFIG"

// Config is the top-level document; each section maps to one
// subsystem's settings.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Keeper    KeeperConfig    `toml:"keeper"`
	MergeTree MergeTreeConfig `toml:"mergetree"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig configures the client-facing database listener.
type ServerConfig struct {
	ListenAddr    string `toml:"listen_addr"`
	MaxConcurrent int    `toml:"max_concurrent_queries"`
	DataPath      string `toml:"data_path"`
}

// KeeperConfig configures one Raft-backed Keeper node.
type KeeperConfig struct {
	NodeID               string        `toml:"node_id"`
	DataDir              string        `toml:"data_dir"`
	ClientListenAddr      string        `toml:"client_listen_addr"`
	RaftListenAddr       string        `toml:"raft_listen_addr"`
	Peers                []string      `toml:"peers"`
	SessionTimeoutMin    time.Duration `toml:"session_timeout_min"`
	SessionTimeoutMax    time.Duration `toml:"session_timeout_max"`
	SnapshotContainerBlocks int        `toml:"snapshot_container_blocks"`
	FsyncParallel        bool          `toml:"fsync_parallel"`
}

// MergeTreeConfig configures default table engine behavior.
type MergeTreeConfig struct {
	IndexGranularity      int   `toml:"index_granularity"`
	IndexGranularityBytes int   `toml:"index_granularity_bytes"`
	MinMarksForConcurrentRead int `toml:"min_marks_for_concurrent_read"`
	MinMarksForSeek       int   `toml:"min_marks_for_seek"`
	MaxThreads            int   `toml:"max_threads"`
	UncompressedCacheBytes int64 `toml:"uncompressed_cache_bytes"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Format string `toml:"format"`
	Debug  bool   `toml:"debug"`
}

// Defaults returns the configuration used when no file is supplied
// (16 snapshot container blocks, adaptive-granularity index with an
// 8192-row cap).
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:    "127.0.0.1:9000",
			MaxConcurrent: 100,
			DataPath:      "./data",
		},
		Keeper: KeeperConfig{
			NodeID:                  "1",
			DataDir:                 "./keeper-data",
			ClientListenAddr:        "127.0.0.1:2181",
			RaftListenAddr:          "127.0.0.1:2888",
			SessionTimeoutMin:       4 * time.Second,
			SessionTimeoutMax:       40 * time.Second,
			SnapshotContainerBlocks: 16,
			FsyncParallel:           true,
		},
		MergeTree: MergeTreeConfig{
			IndexGranularity:          8192,
			IndexGranularityBytes:     10 * 1024 * 1024,
			MinMarksForConcurrentRead: 24,
			MinMarksForSeek:           8,
			MaxThreads:                0,
			UncompressedCacheBytes:    1 << 30,
		},
		Logging: LoggingConfig{Format: "console"},
	}
}

// Load resolves the config file path from LATTICE_CONFIG (or path, if
// non-empty, takes precedence), parses it over Defaults(), then applies
// env var overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LATTICE_SERVER_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("LATTICE_KEEPER_NODE_ID"); v != "" {
		cfg.Keeper.NodeID = v
	}
	if v := os.Getenv("LATTICE_KEEPER_DATA_DIR"); v != "" {
		cfg.Keeper.DataDir = v
	}
	if v := os.Getenv("LATTICE_MERGETREE_MAX_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MergeTree.MaxThreads = n
		}
	}
	if v := os.Getenv("LATTICE_LOGGING_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Debug = b
		}
	}
}
