package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("ADMIN_IDS", " 1, 2 ,,3")
	t.Setenv("POINTS_WIN", "120")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load(zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StoreDriver != "file" {
		t.Errorf("StoreDriver = %q, want file", cfg.StoreDriver)
	}
	if len(cfg.AdminIDs) != 3 || !cfg.IsAdminID("2") || cfg.IsAdminID("4") {
		t.Errorf("AdminIDs = %v", cfg.AdminIDs)
	}
	if cfg.Party.Points.Win != 120 || cfg.Party.Points.Loss != 50 || cfg.Party.Points.PerKill != 1 {
		t.Errorf("Points = %+v", cfg.Party.Points)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ENABLE_DISCORD", "true")

	if _, err := Load(zerolog.Nop()); err == nil {
		t.Fatal("expected error without DISCORD_TOKEN")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Load(zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPartyTypeCatalog(t *testing.T) {
	party := DefaultParty()

	tests := []struct {
		key        string
		teams      int
		maxPerTeam int
	}{
		{"mock_battle", 2, 5},
		{"regular_battle", 2, 5},
		{"black_claw", 1, 5},
		{"pk", 1, 5},
		{"raid", 1, 5},
		{"training", 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			pt, ok := party.Type(tt.key)
			if !ok {
				t.Fatalf("type %s missing", tt.key)
			}
			if pt.Teams != tt.teams || pt.MaxPerTeam != tt.maxPerTeam {
				t.Errorf("got %d/%d, want %d/%d", pt.Teams, pt.MaxPerTeam, tt.teams, tt.maxPerTeam)
			}
		})
	}

	if _, ok := party.Type("unknown"); ok {
		t.Error("unknown type resolved")
	}
}
