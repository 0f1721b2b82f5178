package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml"
	"github.com/stellar/go/keypair"
)

func TestGenerateConfTestnet(t *testing.T) {
	conf, err := generateConf(NetworkTestnet)
	if err != nil {
		t.Fatalf("generateConf failed: %v", err)
	}

	var parsed nodeConfig
	if err := toml.Unmarshal([]byte(conf), &parsed); err != nil {
		t.Fatalf("generated config is not valid TOML: %v", err)
	}

	if parsed.NetworkPassphrase != NetworkTestnet.Passphrase() {
		t.Errorf("passphrase = %q", parsed.NetworkPassphrase)
	}
	if !parsed.UnsafeQuorum {
		t.Error("captive config should relax quorum safety")
	}
	if parsed.HTTPPort != 0 || parsed.PublicHTTPPort {
		t.Error("captive config should not expose an HTTP surface")
	}
	if len(parsed.Validators) != 3 {
		t.Fatalf("expected 3 testnet validators, got %d", len(parsed.Validators))
	}
	for _, v := range parsed.Validators {
		if v.History == "" {
			t.Errorf("validator %s has no history archive", v.Name)
		}
	}
}

func TestGenerateConfPubnet(t *testing.T) {
	conf, err := generateConf(NetworkPubnet)
	if err != nil {
		t.Fatalf("generateConf failed: %v", err)
	}

	var parsed nodeConfig
	if err := toml.Unmarshal([]byte(conf), &parsed); err != nil {
		t.Fatalf("generated config is not valid TOML: %v", err)
	}
	if parsed.NetworkPassphrase != NetworkPubnet.Passphrase() {
		t.Errorf("passphrase = %q", parsed.NetworkPassphrase)
	}
	if len(parsed.Validators) != 3 {
		t.Fatalf("expected 3 pubnet validators, got %d", len(parsed.Validators))
	}
}

func TestGenerateConfThrowawayIdentity(t *testing.T) {
	a, err := generateConf(NetworkTestnet)
	if err != nil {
		t.Fatalf("generateConf failed: %v", err)
	}
	b, err := generateConf(NetworkTestnet)
	if err != nil {
		t.Fatalf("generateConf failed: %v", err)
	}

	var pa, pb nodeConfig
	if err := toml.Unmarshal([]byte(a), &pa); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := toml.Unmarshal([]byte(b), &pb); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if pa.NodeSeed == "" || pa.NodeSeed == pb.NodeSeed {
		t.Error("each generated config should carry a fresh node seed")
	}
	if _, err := keypair.ParseFull(pa.NodeSeed); err != nil {
		t.Errorf("node seed is not a valid keypair seed: %v", err)
	}
}

func TestWriteConf(t *testing.T) {
	dir := t.TempDir()

	path, err := writeConf(NetworkTestnet, dir)
	if err != nil {
		t.Fatalf("writeConf failed: %v", err)
	}
	if path != filepath.Join(dir, ConfFileName) {
		t.Errorf("unexpected config path: %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "NETWORK_PASSPHRASE") {
		t.Error("written config should contain the network passphrase")
	}
}
