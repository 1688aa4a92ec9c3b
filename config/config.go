package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

// Config carries the daemon configuration. Addresses are bech32 strings;
// token quantities are whole tokens and converted to base units by the
// caller.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`
	Env         string `toml:"Env"`

	Owner        string `toml:"Owner"`
	OwnerKeyFile string `toml:"OwnerKeyFile"`

	ReportingEntities []string `toml:"ReportingEntities"`
	AuthorizedCallers []string `toml:"AuthorizedCallers"`

	RewardBaseTokens      int64  `toml:"RewardBaseTokens"`
	RewardBonusThreshold  uint32 `toml:"RewardBonusThreshold"`
	RewardBonusMultiplier uint32 `toml:"RewardBonusMultiplier"`
	InitialReserveTokens  int64  `toml:"InitialReserveTokens"`

	RPCRateLimitPerMinute float64 `toml:"RPCRateLimitPerMinute"`
	RPCRateBurst          int     `toml:"RPCRateBurst"`
}

// Load loads the configuration from the given path, creating a default
// configuration (including a fresh owner key) when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(path string) {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(filepath.Dir(path), "credd-data")
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "credchain-local"
	}
	if c.ReportingEntities == nil {
		c.ReportingEntities = []string{}
	}
	if c.AuthorizedCallers == nil {
		c.AuthorizedCallers = []string{}
	}
	if c.RewardBaseTokens == 0 {
		c.RewardBaseTokens = 100
	}
	if c.RewardBonusThreshold == 0 {
		c.RewardBonusThreshold = 10
	}
	if c.RewardBonusMultiplier == 0 {
		c.RewardBonusMultiplier = 2
	}
	if c.InitialReserveTokens == 0 {
		c.InitialReserveTokens = 1_000_000
	}
	if c.RPCRateLimitPerMinute == 0 {
		c.RPCRateLimitPerMinute = 120
	}
	if c.RPCRateBurst == 0 {
		c.RPCRateBurst = 30
	}
}

// Validate checks the configured principals and numeric knobs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("config: Owner address is required")
	}
	if _, err := crypto.DecodeAddress(c.Owner); err != nil {
		return fmt.Errorf("config: invalid Owner address: %w", err)
	}
	for _, entity := range c.ReportingEntities {
		if _, err := crypto.DecodeAddress(entity); err != nil {
			return fmt.Errorf("config: invalid reporting entity %q: %w", entity, err)
		}
	}
	for _, caller := range c.AuthorizedCallers {
		if _, err := crypto.DecodeAddress(caller); err != nil {
			return fmt.Errorf("config: invalid authorized caller %q: %w", caller, err)
		}
	}
	if c.RewardBaseTokens < 0 || c.InitialReserveTokens < 0 {
		return fmt.Errorf("config: token quantities must be non-negative")
	}
	return nil
}

// OwnerAddress decodes the configured owner principal.
func (c *Config) OwnerAddress() (crypto.Address, error) {
	return crypto.DecodeAddress(c.Owner)
}

// EntityAddresses decodes the configured reporting entities.
func (c *Config) EntityAddresses() ([]crypto.Address, error) {
	return decodeAll(c.ReportingEntities)
}

// CallerAddresses decodes the configured authorized callers.
func (c *Config) CallerAddresses() ([]crypto.Address, error) {
	return decodeAll(c.AuthorizedCallers)
}

func decodeAll(encoded []string) ([]crypto.Address, error) {
	out := make([]crypto.Address, 0, len(encoded))
	for _, s := range encoded {
		addr, err := crypto.DecodeAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func createDefault(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("config: generate owner key: %w", err)
	}
	keyFile := filepath.Join(filepath.Dir(path), "owner.key")
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(key.Bytes())), 0o600); err != nil {
		return nil, fmt.Errorf("config: write owner key: %w", err)
	}

	cfg := &Config{
		Owner:        key.PubKey().Address().String(),
		OwnerKeyFile: keyFile,
	}
	cfg.applyDefaults(path)

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
