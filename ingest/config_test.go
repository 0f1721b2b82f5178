package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeExecutable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write executable: %v", err)
	}
	return path
}

func TestValidateAcceptsExecutable(t *testing.T) {
	cfg := IngestionConfig{ExecutablePath: writeExecutable(t)}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestValidateRejectsMissingPath(t *testing.T) {
	cfg := IngestionConfig{}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}

	cfg.ExecutablePath = "/does/not/exist"
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for missing file, got: %v", err)
	}
}

func TestValidateRejectsNonExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg := IngestionConfig{ExecutablePath: path}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}
}

func TestValidateRejectsDirectory(t *testing.T) {
	cfg := IngestionConfig{ExecutablePath: t.TempDir()}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got: %v", err)
	}
}

func TestValidateRejectsNegativeOptions(t *testing.T) {
	exe := writeExecutable(t)

	cfg := IngestionConfig{ExecutablePath: exe, BoundedBufferSize: -1}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for negative buffer, got: %v", err)
	}

	cfg = IngestionConfig{ExecutablePath: exe, Stagger: -time.Second}
	if err := cfg.validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for negative stagger, got: %v", err)
	}
}

func TestNetworkPassphrases(t *testing.T) {
	if NetworkTestnet.Passphrase() == NetworkPubnet.Passphrase() {
		t.Error("network passphrases should differ")
	}
	if NetworkTestnet.String() != "testnet" || NetworkPubnet.String() != "pubnet" {
		t.Errorf("unexpected network names: %s, %s", NetworkTestnet, NetworkPubnet)
	}
}
