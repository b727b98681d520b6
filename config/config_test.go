package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFillsDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
mode: connect
peer:
  address: "203.0.113.4:5228"
`), 0644)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Peer.Address != "203.0.113.4:5228" {
		t.Errorf("Peer.Address = %q", cfg.Peer.Address)
	}
	if cfg.SWTP.ReceiveWindowSize != 8 {
		t.Errorf("ReceiveWindowSize defaulted to %d, want 8", cfg.SWTP.ReceiveWindowSize)
	}
	if cfg.TUN.Name != "swtp0" {
		t.Errorf("TUN.Name defaulted to %q, want swtp0", cfg.TUN.Name)
	}
}

func TestLoadRejectsMissingPeerAddressInConnectMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("mode: connect\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing peer.address in connect mode")
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("mode: bogus\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Default()
	original.Mode = "listen"
	original.Listen.Address = "0.0.0.0:5228"
	if err := original.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Listen.Address != original.Listen.Address {
		t.Errorf("Listen.Address = %q, want %q", loaded.Listen.Address, original.Listen.Address)
	}
	if loaded.SWTP.ReceiveWindowSize != original.SWTP.ReceiveWindowSize {
		t.Errorf("ReceiveWindowSize = %d, want %d", loaded.SWTP.ReceiveWindowSize, original.SWTP.ReceiveWindowSize)
	}
}
