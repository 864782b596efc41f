// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/losenet/internal/core"
	"firestige.xyz/losenet/internal/log"
)

// EnvPrefix is the environment form of the root key.
const EnvPrefix = "LOSENET"

// configRoot maps the `losenet:` root key in YAML.
type configRoot struct {
	Losenet Config `mapstructure:"losenet"`
}

// Config represents the top-level static configuration.
type Config struct {
	Node      NodeConfig       `mapstructure:"node"`
	Link      LinkConfig       `mapstructure:"link"`
	Decoder   DecoderConfig    `mapstructure:"decoder"`
	TCP       TCPConfig        `mapstructure:"tcp"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	App       AppConfig        `mapstructure:"app"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Log       log.LoggerConfig `mapstructure:"log"`

	stack core.Stack
}

// ─── Node Identity ───

// NodeConfig is the local identity answered for. Empty IP or MAC are taken
// from Interface when it is set.
type NodeConfig struct {
	IP        string `mapstructure:"ip"`
	MAC       string `mapstructure:"mac"`
	Interface string `mapstructure:"interface"`
}

// ─── Link ───

// LinkConfig selects a registered link driver. Options are decoded by the driver.
type LinkConfig struct {
	Type    string                 `mapstructure:"type"`
	Options map[string]interface{} `mapstructure:"options"`
}

// ─── Packet Path ───

type DecoderConfig struct {
	VerifyChecksums bool `mapstructure:"verify_checksums"`
}

// TCPConfig tunes generated segments. A zero ISN with RandomISN set draws a
// fresh initial sequence number per SYN.
type TCPConfig struct {
	Window    uint16 `mapstructure:"window"`
	ISN       uint32 `mapstructure:"isn"`
	RandomISN bool   `mapstructure:"random_isn"`
}

// RateLimitConfig caps replies per source address per window. MaxPerIP 0 disables it.
type RateLimitConfig struct {
	MaxPerIP int           `mapstructure:"max_per_ip"`
	Window   time.Duration `mapstructure:"window"`
}

// ─── Application ───

const (
	UDPAppNone = "none"
	UDPAppPing = "ping"
	UDPAppEcho = "echo"
)

type AppConfig struct {
	UDP  string        `mapstructure:"udp"` // none | ping | echo
	HTTP HTTPAppConfig `mapstructure:"http"`
}

// HTTPAppConfig serves one page over the single-exchange TCP path.
// Page is a file path; empty serves the built-in page.
type HTTPAppConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Page    string `mapstructure:"page"`
}

// ─── Metrics ───

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

// Load reads the YAML file at path, applies environment overrides and
// defaults, then validates. An empty path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `losenet.` key prefix maps to `LOSENET_` in env vars via the key
	// replacer (e.g., key "losenet.node.ip" → env "LOSENET_NODE_IP").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Losenet

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// Keys without a meaningful default are still registered so env overrides reach them.
func setDefaults(v *viper.Viper) {
	// Node
	v.SetDefault("losenet.node.ip", "")
	v.SetDefault("losenet.node.mac", "")
	v.SetDefault("losenet.node.interface", "")

	// Link
	v.SetDefault("losenet.link.type", "afpacket")

	// Packet path
	v.SetDefault("losenet.decoder.verify_checksums", false)
	v.SetDefault("losenet.tcp.window", 0xFFFF)
	v.SetDefault("losenet.tcp.isn", 0)
	v.SetDefault("losenet.tcp.random_isn", false)
	v.SetDefault("losenet.rate_limit.max_per_ip", 0)
	v.SetDefault("losenet.rate_limit.window", "10s")

	// Application
	v.SetDefault("losenet.app.udp", UDPAppPing)
	v.SetDefault("losenet.app.http.enabled", true)
	v.SetDefault("losenet.app.http.page", "")

	// Metrics
	v.SetDefault("losenet.metrics.enabled", false)
	v.SetDefault("losenet.metrics.listen", ":9091")
	v.SetDefault("losenet.metrics.path", "/metrics")

	// Log
	v.SetDefault("losenet.log.level", log.DefaultLevel)
	v.SetDefault("losenet.log.pattern", log.DefaultPattern)
	v.SetDefault("losenet.log.time", log.DefaultTime)
}

// ValidateAndApplyDefaults validates configuration and resolves the node identity.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("log level: %s (must be trace/debug/info/warn/error)", cfg.Log.Level)
	}

	// ── Node identity ──
	stack, err := resolveNode(&cfg.Node)
	if err != nil {
		return err
	}
	cfg.stack = stack

	// ── Link ──
	if cfg.Link.Type == "" {
		return invalid("link.type is required")
	}

	// ── Packet path ──
	if cfg.TCP.Window == 0 {
		cfg.TCP.Window = 0xFFFF
	}
	if cfg.RateLimit.MaxPerIP < 0 {
		return invalid("rate_limit.max_per_ip: %d (must be >= 0)", cfg.RateLimit.MaxPerIP)
	}
	if cfg.RateLimit.MaxPerIP > 0 && cfg.RateLimit.Window <= 0 {
		return invalid("rate_limit.window: %s (must be positive)", cfg.RateLimit.Window)
	}

	// ── Application ──
	switch cfg.App.UDP {
	case UDPAppNone, UDPAppPing, UDPAppEcho:
	case "":
		cfg.App.UDP = UDPAppNone
	default:
		return invalid("app.udp: %s (must be none/ping/echo)", cfg.App.UDP)
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}

	return nil
}

// Stack returns the node identity resolved by ValidateAndApplyDefaults.
func (cfg *Config) Stack() core.Stack {
	return cfg.stack
}

// resolveNode parses the configured identity, filling gaps from the named interface.
// Priority: env/config explicit value → interface address → error.
func resolveNode(node *NodeConfig) (core.Stack, error) {
	if (node.IP == "" || node.MAC == "") && node.Interface != "" {
		if err := fillFromInterface(node); err != nil {
			return core.Stack{}, err
		}
	}
	if node.IP == "" {
		return core.Stack{}, invalid("cannot resolve node IP: set %s_NODE_IP or losenet.node.ip", EnvPrefix)
	}
	if node.MAC == "" {
		return core.Stack{}, invalid("cannot resolve node MAC: set %s_NODE_MAC or losenet.node.mac", EnvPrefix)
	}

	ip, err := core.ParseIPv4(node.IP)
	if err != nil {
		return core.Stack{}, invalid("node.ip: %v", err)
	}
	mac, err := core.ParseMAC(node.MAC)
	if err != nil {
		return core.Stack{}, invalid("node.mac: %v", err)
	}
	return core.NewStack(ip, mac), nil
}

func fillFromInterface(node *NodeConfig) error {
	iface, err := net.InterfaceByName(node.Interface)
	if err != nil {
		return invalid("node.interface %s: %v", node.Interface, err)
	}
	if node.MAC == "" && len(iface.HardwareAddr) == 6 {
		node.MAC = iface.HardwareAddr.String()
	}
	if node.IP != "" {
		return nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return invalid("node.interface %s: %v", node.Interface, err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			node.IP = ip4.String()
			return nil
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
