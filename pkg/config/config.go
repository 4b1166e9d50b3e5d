// Package config loads the example daemon's settings from a YAML file, with
// command-line flags able to override anything it sets.
package config

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the example daemon's full set of tunables. None of it bears on
// session correctness; it exists so cmd/raftsessiond is configurable the
// way a real service would be.
type Config struct {
	// RPCAddress is the net/rpc (Zookeeper-shaped command/query) listen address.
	RPCAddress string `yaml:"rpc_address"`
	// GRPCAddress is the grpcconn Publish-stream listen address.
	GRPCAddress string `yaml:"grpc_address"`
	// SessionTimeout is the inactivity budget assigned to new sessions.
	SessionTimeout time.Duration `yaml:"session_timeout"`
	// KeepAliveInterval is how often the example daemon sweeps sessions that
	// have gone silent past SessionTimeout.
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	// ResponseGCInterval is how often the example daemon discards cached
	// command responses up to each session's current command sequence
	// (Registry.GCResponses).
	ResponseGCInterval time.Duration `yaml:"response_gc_interval"`
	// LogDir is where pkg/persistence.LogManager writes committed entries.
	LogDir string `yaml:"log_dir"`
}

// Default returns the configuration cmd/raftsessiond starts from before any
// file or flag override is applied.
func Default() Config {
	return Config{
		RPCAddress:         ":8080",
		GRPCAddress:        ":8081",
		SessionTimeout:     30 * time.Second,
		KeepAliveInterval:  10 * time.Second,
		ResponseGCInterval: 10 * time.Second,
		LogDir:             "./logs",
	}
}

// Load reads path (if non-empty) as YAML over Default(), then applies any
// flags the caller registered on fs that were actually set, and returns the
// merged result. fs is expected to already have had its flags defined via
// RegisterFlags and Parse called on it.
func Load(path string, fs *flag.FlagSet) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyFlagOverrides(&cfg, fs)
	return cfg, nil
}

// RegisterFlags defines every overridable field of Config on fs with
// Default()'s values as the flags' own defaults, so fs.Changed can later
// tell a deliberate override apart from an unset flag.
func RegisterFlags(fs *flag.FlagSet) {
	d := Default()
	fs.String("rpc-address", d.RPCAddress, "net/rpc listen address for command/query RPCs")
	fs.String("grpc-address", d.GRPCAddress, "gRPC listen address for the session event stream")
	fs.Duration("session-timeout", d.SessionTimeout, "inactivity budget for new sessions")
	fs.Duration("keep-alive-interval", d.KeepAliveInterval, "stale-session expiry sweep interval")
	fs.Duration("response-gc-interval", d.ResponseGCInterval, "cached-response GC sweep interval")
	fs.String("log-dir", d.LogDir, "directory for the write-ahead log")
}

func applyFlagOverrides(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	if fs.Changed("rpc-address") {
		cfg.RPCAddress, _ = fs.GetString("rpc-address")
	}
	if fs.Changed("grpc-address") {
		cfg.GRPCAddress, _ = fs.GetString("grpc-address")
	}
	if fs.Changed("session-timeout") {
		cfg.SessionTimeout, _ = fs.GetDuration("session-timeout")
	}
	if fs.Changed("keep-alive-interval") {
		cfg.KeepAliveInterval, _ = fs.GetDuration("keep-alive-interval")
	}
	if fs.Changed("response-gc-interval") {
		cfg.ResponseGCInterval, _ = fs.GetDuration("response-gc-interval")
	}
	if fs.Changed("log-dir") {
		cfg.LogDir, _ = fs.GetString("log-dir")
	}
}
