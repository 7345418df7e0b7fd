package trades

import (
	"errors"
	"testing"
)

func TestLookupKnownTrades(t *testing.T) {
	for _, id := range IDs() {
		cfg, err := Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", id, err)
		}
		if cfg.ID != id {
			t.Fatalf("Lookup(%q) returned config for %q", id, cfg.ID)
		}
		if cfg.Name == "" || cfg.Icon == "" || cfg.Color == "" {
			t.Errorf("%s: incomplete display config %+v", id, cfg)
		}
		if cfg.DefaultJobDuration <= 0 {
			t.Errorf("%s: non-positive default duration", id)
		}
		if len(cfg.JobTypes) == 0 || len(cfg.InventoryCategories) == 0 {
			t.Errorf("%s: empty vocabulary", id)
		}
		if len(cfg.ChecklistTemplates) == 0 || len(cfg.QuickLineItems) == 0 {
			t.Errorf("%s: missing templates or line items", id)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("carpentry")
	var ute UnknownTradeError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnknownTradeError, got %v", err)
	}
	if ute.ID != "carpentry" {
		t.Fatalf("error carries %q", ute.ID)
	}
}

func TestLookupOrDefault(t *testing.T) {
	if got := LookupOrDefault("nope").ID; got != DefaultTrade {
		t.Fatalf("fallback resolved to %q, want %q", got, DefaultTrade)
	}
	if got := LookupOrDefault(Plumbing).ID; got != Plumbing {
		t.Fatalf("known id resolved to %q", got)
	}
}

func TestIDsOrderAndCount(t *testing.T) {
	ids := IDs()
	want := []string{HVAC, Electrical, Plumbing, Locksmith, GeneralContractor}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
	// returned slice is a copy
	ids[0] = "mutated"
	if IDs()[0] != HVAC {
		t.Fatal("IDs leaked internal slice")
	}
}

func TestTemplateFor(t *testing.T) {
	tpl, ok := TemplateFor(HVAC, "hvac-install")
	if !ok || tpl.ID != "hvac-install" {
		t.Fatalf("named template lookup failed: %+v ok=%v", tpl, ok)
	}
	tpl, ok = TemplateFor(Locksmith, "")
	if !ok || tpl.ID != "lock-rekey" {
		t.Fatalf("default template lookup got %+v ok=%v", tpl, ok)
	}
	if _, ok := TemplateFor(HVAC, "missing"); ok {
		t.Fatal("unknown template id should not resolve")
	}
}
