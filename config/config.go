// Package config loads client settings from a TOML file. Values absent
// from the file keep their defaults; only keys actually present override,
// so an explicit empty string in the file wins over the default.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Balancer selection strategies accepted in config.
const (
	BalancerRoundRobin     = "round-robin"
	BalancerWeightedRandom = "weighted-random"
	BalancerConsistentHash = "consistent-hash"
)

// Config is the resolved runtime configuration for a client.
type Config struct {
	// BrokerAddr is a direct host:port. Ignored when EtcdEndpoints is set.
	BrokerAddr string
	// Host is the virtual host announced during the handshake. Defaults
	// to BrokerAddr.
	Host     string
	Login    string
	Passcode string

	// UseWebSocket switches the transport to STOMP-over-WebSocket at
	// WebSocketURL.
	UseWebSocket bool
	WebSocketURL string

	MaxFrameSize int

	// SendRatePerSec of 0 disables the rate-limit middleware.
	SendRatePerSec float64
	SendBurst      int
	SendTimeout    time.Duration

	// EtcdEndpoints enables registry-based discovery for Cluster.
	EtcdEndpoints []string
	Cluster       string
	Balancer      string

	// Headers are extra headers attached to the CONNECT frame.
	Headers map[string]string
}

// Default returns the configuration used when no file key overrides it.
func Default() Config {
	return Config{
		BrokerAddr:   "localhost:61613",
		MaxFrameSize: 1 << 20,
		SendBurst:    1,
		SendTimeout:  5 * time.Second,
		Balancer:     BalancerRoundRobin,
	}
}

type fileConfig struct {
	BrokerAddr     string            `toml:"broker_addr"`
	Host           string            `toml:"host"`
	Login          string            `toml:"login"`
	Passcode       string            `toml:"passcode"`
	UseWebSocket   bool              `toml:"use_websocket"`
	WebSocketURL   string            `toml:"websocket_url"`
	MaxFrameSize   int               `toml:"max_frame_size"`
	SendRatePerSec float64           `toml:"send_rate_per_sec"`
	SendBurst      int               `toml:"send_burst"`
	SendTimeoutMS  int               `toml:"send_timeout_ms"`
	EtcdEndpoints  []string          `toml:"etcd_endpoints"`
	Cluster        string            `toml:"cluster"`
	Balancer       string            `toml:"balancer"`
	Headers        map[string]string `toml:"headers"`
}

// Load reads path and overlays its keys on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}

	if meta.IsDefined("broker_addr") {
		cfg.BrokerAddr = strings.TrimSpace(raw.BrokerAddr)
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("login") {
		cfg.Login = raw.Login
	}
	if meta.IsDefined("passcode") {
		cfg.Passcode = raw.Passcode
	}
	if meta.IsDefined("use_websocket") {
		cfg.UseWebSocket = raw.UseWebSocket
	}
	if meta.IsDefined("websocket_url") {
		cfg.WebSocketURL = strings.TrimSpace(raw.WebSocketURL)
	}
	if meta.IsDefined("max_frame_size") {
		cfg.MaxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("send_rate_per_sec") {
		cfg.SendRatePerSec = raw.SendRatePerSec
	}
	if meta.IsDefined("send_burst") {
		cfg.SendBurst = raw.SendBurst
	}
	if meta.IsDefined("send_timeout_ms") {
		cfg.SendTimeout = time.Duration(raw.SendTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("etcd_endpoints") {
		cfg.EtcdEndpoints = raw.EtcdEndpoints
	}
	if meta.IsDefined("cluster") {
		cfg.Cluster = strings.TrimSpace(raw.Cluster)
	}
	if meta.IsDefined("balancer") {
		cfg.Balancer = strings.TrimSpace(raw.Balancer)
	}
	if meta.IsDefined("headers") {
		cfg.Headers = raw.Headers
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a working client.
func Validate(cfg Config) error {
	if cfg.UseWebSocket && strings.TrimSpace(cfg.WebSocketURL) == "" {
		return errors.New("websocket_url is required when use_websocket is set")
	}
	if len(cfg.EtcdEndpoints) > 0 && strings.TrimSpace(cfg.Cluster) == "" {
		return errors.New("cluster is required when etcd_endpoints is set")
	}
	if !cfg.UseWebSocket && len(cfg.EtcdEndpoints) == 0 &&
		strings.TrimSpace(cfg.BrokerAddr) == "" {
		return errors.New("broker_addr is required")
	}
	switch cfg.Balancer {
	case BalancerRoundRobin, BalancerWeightedRandom, BalancerConsistentHash:
	default:
		return errors.Errorf("unknown balancer %q", cfg.Balancer)
	}
	if cfg.MaxFrameSize <= 0 {
		return errors.Errorf("max_frame_size must be positive, got %d", cfg.MaxFrameSize)
	}
	if cfg.SendRatePerSec < 0 {
		return errors.Errorf("send_rate_per_sec must not be negative, got %v", cfg.SendRatePerSec)
	}
	return nil
}
