package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Davidcuama/SisteCredito-Hackaton/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := os.Stat(cfg.OwnerKeyFile); err != nil {
		t.Fatalf("owner key not written: %v", err)
	}
	if _, err := cfg.OwnerAddress(); err != nil {
		t.Fatalf("generated owner does not decode: %v", err)
	}
	if cfg.RPCAddress != ":8645" {
		t.Fatalf("unexpected default RPC address %q", cfg.RPCAddress)
	}
	if cfg.RewardBaseTokens != 100 || cfg.RewardBonusThreshold != 10 || cfg.RewardBonusMultiplier != 2 {
		t.Fatalf("unexpected reward defaults: %+v", cfg)
	}
	if cfg.InitialReserveTokens != 1_000_000 {
		t.Fatalf("unexpected reserve default %d", cfg.InitialReserveTokens)
	}

	// A second load must read the same file back, not regenerate keys.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Owner != cfg.Owner {
		t.Fatalf("owner changed across loads: %q vs %q", again.Owner, cfg.Owner)
	}
}

func TestLoadExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := key.PubKey().Address().String()

	entityKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	entity := entityKey.PubKey().Address().String()

	body := "RPCAddress = \":9901\"\n" +
		"Owner = \"" + owner + "\"\n" +
		"ReportingEntities = [\"" + entity + "\"]\n" +
		"RewardBaseTokens = 50\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9901" {
		t.Fatalf("unexpected RPC address %q", cfg.RPCAddress)
	}
	if cfg.RewardBaseTokens != 50 {
		t.Fatalf("unexpected base reward %d", cfg.RewardBaseTokens)
	}
	if cfg.RewardBonusThreshold != 10 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	entities, err := cfg.EntityAddresses()
	if err != nil {
		t.Fatalf("decode entities: %v", err)
	}
	if len(entities) != 1 || entities[0].String() != entity {
		t.Fatalf("unexpected entities %v", entities)
	}
}

func TestValidateRejectsBadPrincipals(t *testing.T) {
	cfg := &Config{Owner: "not-a-bech32-address"}
	cfg.applyDefaults("config.toml")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid owner to be rejected")
	}

	cfg = &Config{}
	cfg.applyDefaults("config.toml")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing owner to be rejected")
	}
}
