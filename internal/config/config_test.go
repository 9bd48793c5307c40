//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const minimalConfig = `
bot:
  token: "123:abc"
redis:
  url: "localhost:6379"
shop:
  client_id: "client-1"
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig), false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Bot.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Bot.Workers)
	}
	if cfg.Bot.RateLimit != 20 || cfg.Bot.RateWindow != time.Minute {
		t.Errorf("rate limit = %d per %v", cfg.Bot.RateLimit, cfg.Bot.RateWindow)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Shop.BaseURL != "https://api.moltin.com" {
		t.Errorf("shop base url = %q", cfg.Shop.BaseURL)
	}
	if cfg.Shop.Timeout != 15*time.Second {
		t.Errorf("shop timeout = %v", cfg.Shop.Timeout)
	}
	if cfg.Bot.LockLease != 4*cfg.Shop.Timeout {
		t.Errorf("lock lease = %v, want %v", cfg.Bot.LockLease, 4*cfg.Shop.Timeout)
	}
	if cfg.Admin.Port != 8090 || cfg.Admin.TokenTTL != 30*time.Minute {
		t.Errorf("admin defaults = %d/%v", cfg.Admin.Port, cfg.Admin.TokenTTL)
	}
	if cfg.Runtime.Dev {
		t.Error("dev flag should not be set")
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	content := `
bot:
  token: "123:abc"
  workers: 4
  rate_limit: 5
  rate_window: 30s
  lock_lease: 45s
log:
  level: debug
  format: console
redis:
  url: "redis-host:6380"
  db: 2
shop:
  client_id: "client-1"
  base_url: "https://shop.internal"
  timeout: 3s
admin:
  port: 9999
  jwt_secret: "s3cret"
`
	cfg, err := LoadConfig(writeConfig(t, content), true)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bot.Workers != 4 || cfg.Bot.RateLimit != 5 || cfg.Bot.RateWindow != 30*time.Second {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Shop.BaseURL != "https://shop.internal" || cfg.Shop.Timeout != 3*time.Second {
		t.Errorf("shop = %+v", cfg.Shop)
	}
	if cfg.Bot.LockLease != 45*time.Second {
		t.Errorf("lock lease = %v, want 45s", cfg.Bot.LockLease)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("redis db = %d", cfg.Redis.DB)
	}
	if cfg.Admin.Port != 9999 || cfg.Admin.JWTSecret != "s3cret" {
		t.Errorf("admin = %+v", cfg.Admin)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag lost")
	}
}

func TestLoadConfig_RequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing bot token",
			content: "redis:\n  url: x\nshop:\n  client_id: y\n",
			wantErr: "bot.token",
		},
		{
			name:    "missing redis url",
			content: "bot:\n  token: t\nshop:\n  client_id: y\n",
			wantErr: "redis.url",
		},
		{
			name:    "missing shop client id",
			content: "bot:\n  token: t\nredis:\n  url: x\n",
			wantErr: "shop.client_id",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content), false)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadConfig_BadInput(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"), false); err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := LoadConfig(writeConfig(t, "bot: [unclosed"), false); err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("lock lease shorter than shop timeout", func(t *testing.T) {
		content := `
bot:
  token: "123:abc"
  lock_lease: 5s
redis:
  url: "localhost:6379"
shop:
  client_id: "client-1"
  timeout: 10s
`
		_, err := LoadConfig(writeConfig(t, content), false)
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "lock_lease") {
			t.Errorf("error %q does not mention lock_lease", err)
		}
	})
}
