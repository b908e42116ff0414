// Package config loads the custodiand daemon configuration.
//
// Example:
//
//	{
//	  "listen": "127.0.0.1:7700",
//	  "metrics_listen": "127.0.0.1:9100",
//	  "log_level": "info",
//	  "store": {"backend": "sqlite", "options": {"path": "/var/lib/custodian/ledger.db"}},
//	  "archive": {"dirs": ["/var/lib/custodian/archive"]},
//	  "nats": {"url": "nats://127.0.0.1:4222", "subject": "custodian.events"},
//	  "schemes": ["ed25519"],
//	  "bootstrap": {"owner": "<base58>", "signer": "<base58>", "assets": ["<base58>"]}
//	}
//
// Store options are backend-specific; see the storage backend packages.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/endorse"
)

const DefaultListen = "127.0.0.1:7700"

type Config struct {
	Listen string `json:"listen"`
	// MetricsListen serves /metrics when set.
	MetricsListen string `json:"metrics_listen,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`

	Store   StoreConfig   `json:"store"`
	Archive ArchiveConfig `json:"archive,omitempty"`
	NATS    NATSConfig    `json:"nats,omitempty"`

	// Schemes lists accepted endorsement schemes; empty means ed25519 only.
	Schemes   []string        `json:"schemes,omitempty"`
	Bootstrap BootstrapConfig `json:"bootstrap,omitempty"`
}

type StoreConfig struct {
	Backend string            `json:"backend"`
	Options map[string]string `json:"options,omitempty"`
}

// ArchiveConfig enables the event archive. Every event is written to every
// directory.
type ArchiveConfig struct {
	Dirs []string `json:"dirs,omitempty"`
}

type NATSConfig struct {
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`
	// Flush waits for the server after each publish.
	Flush bool `json:"flush,omitempty"`
}

// BootstrapConfig initializes an empty ledger on startup. Owner becomes the
// owner and fee recipient, Signer (defaulting to Owner) the authorizer, and
// one vault is created per asset. Existing state is left alone.
type BootstrapConfig struct {
	Owner        string   `json:"owner,omitempty"`
	Signer       string   `json:"signer,omitempty"`
	FeeToAccount string   `json:"fee_to_account,omitempty"`
	Assets       []string `json:"assets,omitempty"`
}

// Default runs an in-memory ledger on DefaultListen.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		LogLevel: "info",
		Store:    StoreConfig{Backend: "memory"},
	}
}

// LoadFile reads path over Default and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Store.Backend == "" {
		return errors.New("config: store backend is required")
	}
	seen := make(map[string]struct{}, len(c.Archive.Dirs))
	for _, d := range c.Archive.Dirs {
		if d == "" {
			return errors.New("config: empty archive dir")
		}
		if _, ok := seen[d]; ok {
			return fmt.Errorf("config: duplicate archive dir %q", d)
		}
		seen[d] = struct{}{}
	}
	if _, err := c.EndorsementSchemes(); err != nil {
		return err
	}
	_, err := c.Bootstrap.Parse()
	return err
}

func (c Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return l, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

func (c Config) EndorsementSchemes() ([]endorse.Scheme, error) {
	if len(c.Schemes) == 0 {
		return []endorse.Scheme{endorse.SchemeEd25519}, nil
	}
	out := make([]endorse.Scheme, 0, len(c.Schemes))
	for _, s := range c.Schemes {
		switch sc := endorse.Scheme(s); sc {
		case endorse.SchemeEd25519, endorse.SchemeDilithium3:
			out = append(out, sc)
		default:
			return nil, fmt.Errorf("config: unsupported scheme %q", s)
		}
	}
	return out, nil
}

// Bootstrap is the parsed form of BootstrapConfig.
type Bootstrap struct {
	Owner        addressing.Address
	Signer       addressing.Address
	FeeToAccount addressing.Address
	Assets       []addressing.Address
}

// Enabled reports whether an owner was configured.
func (b Bootstrap) Enabled() bool { return !b.Owner.IsNull() }

func (b BootstrapConfig) Parse() (Bootstrap, error) {
	var out Bootstrap
	var err error
	parse := func(field, s string) addressing.Address {
		if s == "" || err != nil {
			return addressing.Null
		}
		a, perr := addressing.Parse(s)
		if perr != nil {
			err = fmt.Errorf("config: bootstrap.%s: %w", field, perr)
		}
		return a
	}
	out.Owner = parse("owner", b.Owner)
	out.Signer = parse("signer", b.Signer)
	out.FeeToAccount = parse("fee_to_account", b.FeeToAccount)
	for _, s := range b.Assets {
		out.Assets = append(out.Assets, parse("assets", s))
	}
	if err != nil {
		return Bootstrap{}, err
	}
	if out.Owner.IsNull() && (b.Signer != "" || len(b.Assets) > 0) {
		return Bootstrap{}, errors.New("config: bootstrap requires an owner")
	}
	if out.Signer.IsNull() {
		out.Signer = out.Owner
	}
	return out, nil
}
