package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envNATSURL, "")
	t.Setenv(envRedisURL, "")
	t.Setenv(envServicePath, "")
	t.Setenv(envMetricsAddr, "")

	cfg := Load()
	if cfg.NatsURL != defaultNATSURL {
		t.Fatalf("unexpected nats url: %s", cfg.NatsURL)
	}
	if cfg.RedisURL != defaultRedisURL {
		t.Fatalf("unexpected redis url: %s", cfg.RedisURL)
	}
	if cfg.ServicePath != defaultServicePath {
		t.Fatalf("unexpected service path: %s", cfg.ServicePath)
	}
	if cfg.MetricsAddr != defaultMetricsAddr {
		t.Fatalf("unexpected metrics addr: %s", cfg.MetricsAddr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envNATSURL, "nats://bus:4222")
	t.Setenv(envServicePath, "/etc/appgrid/service.yaml")

	cfg := Load()
	if cfg.NatsURL != "nats://bus:4222" {
		t.Fatalf("unexpected nats url: %s", cfg.NatsURL)
	}
	if cfg.ServicePath != "/etc/appgrid/service.yaml" {
		t.Fatalf("unexpected service path: %s", cfg.ServicePath)
	}
}

const sampleController = `
service:
  name: app-runner
  environment: test
  settings:
    language: en
connections:
  appbuilder:
    host: db.tenant.local
    user: grid
    password: secret
    database: appbuilder
  site:
    host: db.site.local
    port: 3307
    user: grid
    database: site
`

func TestParseController(t *testing.T) {
	ctrl, err := ParseController([]byte(sampleController))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ctrl.Service.Name != "app-runner" {
		t.Fatalf("unexpected service name: %s", ctrl.Service.Name)
	}
	def, ok := ctrl.Connection("appbuilder")
	if !ok {
		t.Fatalf("missing appbuilder connection")
	}
	if def.Database != "appbuilder" {
		t.Fatalf("unexpected database: %s", def.Database)
	}
	if _, ok := ctrl.Connection("missing"); ok {
		t.Fatalf("expected lookup miss")
	}
}

func TestParseControllerRejectsEmpty(t *testing.T) {
	if _, err := ParseController(nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
	if _, err := ParseController([]byte("service: {}")); err == nil {
		t.Fatalf("expected error for missing service name")
	}
}

func TestConnectionDSN(t *testing.T) {
	def := ConnectionDef{Host: "db", User: "u", Password: "p", Database: "site"}
	dsn := def.DSN()
	if !strings.Contains(dsn, "u:p@tcp(db:3306)/site") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	def.Port = 3307
	if !strings.Contains(def.DSN(), "db:3307") {
		t.Fatalf("expected explicit port in dsn: %s", def.DSN())
	}
}

func TestLoadController(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.yaml")
	if err := os.WriteFile(path, []byte(sampleController), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	ctrl, err := LoadController(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(ctrl.Connections) != 2 {
		t.Fatalf("unexpected connection count: %d", len(ctrl.Connections))
	}

	if _, err := LoadController(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadController(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
