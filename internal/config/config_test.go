package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tradedesk/internal/config"
	"tradedesk/internal/trades"
)

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := config.Load(dir); err == nil {
		t.Fatal("expected error for missing config")
	} else if !strings.Contains(err.Error(), "td business config import") {
		t.Errorf("error should point at the import command: %v", err)
	}

	cfg, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("optional load: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for missing file, got %+v", cfg)
	}
}

func TestLoadWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	data := config.GenerateDefault("Apex Climate", trades.HVAC)
	if err := os.WriteFile(filepath.Join(dir, "tradedesk.yml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Business.Name != "Apex Climate" || cfg.Business.PrimaryTrade != trades.HVAC {
		t.Errorf("loaded business = %+v", cfg.Business)
	}

	opt, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("optional load: %v", err)
	}
	if opt == nil || opt.Business.Name != "Apex Climate" {
		t.Errorf("optional load = %+v", opt)
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	if _, err := config.FromYAML([]byte("business:\n  name: X\n  primary_trade: roofing\n  type: solo\n")); err == nil {
		t.Fatal("unknown primary trade accepted")
	}
}
