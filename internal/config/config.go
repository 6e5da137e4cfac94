// Package config holds the library's tunables: handshake step timeout,
// RPC deadline, negotiated MTU, and the rx-counter monotonicity policy
// (spec.md §9's open question, resolved as configuration rather than
// guessed).
//
// Loading follows the teacher's config.go shape: an optional .env file in
// the project root, overridden by environment variables of the same
// name. Unlike the teacher's DeviceConfig, nothing here is a secret —
// these are timing and protocol knobs, not credentials.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CounterPolicy governs whether Session rejects a decreasing rx_counter.
type CounterPolicy int

const (
	// CounterInformational logs a decreasing rx_counter but still accepts
	// the frame, matching the reference behavior spec.md §9 describes.
	CounterInformational CounterPolicy = iota
	// CounterMonotonic rejects any frame whose counter is below the highest
	// one seen so far on that direction; a repeated counter is accepted.
	CounterMonotonic
)

// Config is the set of tunables threaded through the handshake engine and
// Session.
type Config struct {
	HandshakeStepTimeout time.Duration
	RPCTimeout           time.Duration
	MTU                  int
	MaxReassembled       int
	RXCounterPolicy      CounterPolicy
}

// Default returns the recommended configuration from spec.md §4.5 and
// §4.6: a 3s handshake step timeout, a 2s RPC deadline, MTU 20, and
// informational (non-rejecting) rx-counter tracking.
func Default() Config {
	return Config{
		HandshakeStepTimeout: 3 * time.Second,
		RPCTimeout:           2 * time.Second,
		MTU:                  20,
		MaxReassembled:       4096,
		RXCounterPolicy:      CounterInformational,
	}
}

var (
	loaded Config
	isSet  bool
)

// Load returns the process-wide Config, built from Default() and then
// overridden by a .env file (if present) and environment variables of the
// same name. Subsequent calls return the cached result.
func Load() Config {
	if isSet {
		return loaded
	}

	cfg := Default()

	projectRoot := findProjectRoot()
	envPath := filepath.Join(projectRoot, ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		applyEnvFile(string(data), &cfg)
	}
	applyEnvironment(&cfg)

	loaded = cfg
	isSet = true
	return loaded
}

func applyEnvFile(content string, cfg *Config) {
	values := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	applyValues(values, cfg)
}

func applyEnvironment(cfg *Config) {
	keys := []string{
		"SCOOTERBLE_HANDSHAKE_TIMEOUT",
		"SCOOTERBLE_RPC_TIMEOUT",
		"SCOOTERBLE_MTU",
		"SCOOTERBLE_MAX_REASSEMBLED",
		"SCOOTERBLE_RX_COUNTER_POLICY",
	}
	values := make(map[string]string)
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			values[k] = v
		}
	}
	applyValues(values, cfg)
}

func applyValues(values map[string]string, cfg *Config) {
	if v, ok := values["SCOOTERBLE_HANDSHAKE_TIMEOUT"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HandshakeStepTimeout = d
		}
	}
	if v, ok := values["SCOOTERBLE_RPC_TIMEOUT"]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RPCTimeout = d
		}
	}
	if v, ok := values["SCOOTERBLE_MTU"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MTU = n
		}
	}
	if v, ok := values["SCOOTERBLE_MAX_REASSEMBLED"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxReassembled = n
		}
	}
	if v, ok := values["SCOOTERBLE_RX_COUNTER_POLICY"]; ok {
		switch strings.ToLower(v) {
		case "monotonic":
			cfg.RXCounterPolicy = CounterMonotonic
		case "informational":
			cfg.RXCounterPolicy = CounterInformational
		}
	}
}

func findProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
