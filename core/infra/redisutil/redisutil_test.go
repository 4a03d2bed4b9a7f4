package redisutil

import "testing"

func TestParseOptions(t *testing.T) {
	t.Setenv(envRedisTLSCA, "")
	t.Setenv(envRedisTLSCert, "")
	t.Setenv(envRedisTLSKey, "")
	t.Setenv(envRedisTLSInsecure, "")

	opts, err := ParseOptions("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.Addr != "cache:6380" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected credentials: %+v", opts)
	}
}

func TestParseOptionsBadURL(t *testing.T) {
	if _, err := ParseOptions("not a url"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTLSInsecureFromEnv(t *testing.T) {
	t.Setenv(envRedisTLSCA, "")
	t.Setenv(envRedisTLSCert, "")
	t.Setenv(envRedisTLSKey, "")
	t.Setenv(envRedisTLSInsecure, "true")

	cfg, err := tlsConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("tls config failed: %v", err)
	}
	if cfg == nil || !cfg.InsecureSkipVerify {
		t.Fatalf("expected insecure tls config")
	}
}

func TestTLSCertRequiresKey(t *testing.T) {
	t.Setenv(envRedisTLSCA, "")
	t.Setenv(envRedisTLSCert, "/tmp/cert.pem")
	t.Setenv(envRedisTLSKey, "")
	t.Setenv(envRedisTLSInsecure, "")

	if _, err := tlsConfigFromEnv(nil); err == nil {
		t.Fatalf("expected cert/key pairing error")
	}
}

func TestParseAddrListEnv(t *testing.T) {
	t.Setenv(envRedisClusterAddrs, "a:6379, b:6379\nc:6379")
	addrs := parseAddrListEnv(envRedisClusterAddrs)
	if len(addrs) != 3 {
		t.Fatalf("unexpected addrs: %v", addrs)
	}
}
