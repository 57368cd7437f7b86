package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/verdant/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func errorCode(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Paths.APIBase != DefaultAPIBase || cfg.Paths.DataPrefix != DefaultDataPrefix {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Cache.RegenerationTimeout.Std() != 10*time.Second {
		t.Errorf("RegenerationTimeout = %s", cfg.Cache.RegenerationTimeout)
	}
	if cfg.BuildID != "" {
		t.Errorf("BuildID = %q, want empty before defaults", cfg.BuildID)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir); errorCode(err) != "V101" {
		t.Fatalf("missing config error = %v, want V101", err)
	}

	writeFile(t, dir, ConfigFileName, `{
  "name": "shop",
  "buildId": "b42",
  "server": {"port": 8080, "writeTimeout": "45s"},
  "paths": {"apiBase": "/rpc"},
  "cache": {"loaderTimeout": 2},
  "revalidate": {"nats": {"url": "nats://localhost:4222"}}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "shop" || cfg.BuildID != "b42" {
		t.Errorf("Name/BuildID = %q/%q", cfg.Name, cfg.BuildID)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != DefaultHost {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout.Std() != 45*time.Second || cfg.Server.ReadTimeout.Std() != 15*time.Second {
		t.Errorf("timeouts = %s/%s", cfg.Server.WriteTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Paths.APIBase != "/rpc" || cfg.Paths.DataPrefix != DefaultDataPrefix {
		t.Errorf("Paths = %+v", cfg.Paths)
	}
	if cfg.Cache.LoaderTimeout.Std() != 2*time.Second {
		t.Errorf("LoaderTimeout = %s", cfg.Cache.LoaderTimeout)
	}
	if cfg.Revalidate.NATS.Subject != DefaultNATSSubject {
		t.Errorf("NATS.Subject = %q", cfg.Revalidate.NATS.Subject)
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFileName, `
production: true
server:
  port: 9000
  shutdownTimeout: 3s
revalidate:
  secret: from-file
  rateLimit: 2.5
export:
  output: s3://bucket/site
  s3:
    region: eu-west-1
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Production || cfg.Server.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Server.ShutdownTimeout.Std() != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Revalidate.RateLimit != 2.5 || cfg.Revalidate.Burst != 20 {
		t.Errorf("Revalidate = %+v", cfg.Revalidate)
	}
	if cfg.OutputPath() != "s3://bucket/site" || cfg.Export.S3.Region != "eu-west-1" {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if cfg.BuildID == "" {
		t.Error("BuildID should be generated")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFileName, "name: yaml\n")
	writeFile(t, dir, ConfigFileName, `{"name": "json"}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "json" {
		t.Errorf("Name = %q, want json", cfg.Name)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"invalid json", "verdant.json", `{"server": `, "V102"},
		{"invalid yaml", "verdant.yaml", "server:\n  port: [1,\n", "V102"},
		{"bad duration", "verdant.json", `{"cache": {"loaderTimeout": "soon"}}`, "V102"},
		{"unknown extension", "verdant.toml", `name = "x"`, "V106"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadFile(path)
			if got := errorCode(err); got != tt.want {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(dir, "absent.json")); errorCode(err) != "V101" {
		t.Errorf("absent file error = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvRevalidateSecret, "env-secret")
	t.Setenv(EnvProduction, "true")
	t.Setenv(EnvPort, "4321")
	t.Setenv(EnvBuildID, "env-build")
	t.Setenv(EnvNATSURL, "nats://queue:4222")

	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `{"revalidate": {"secret": "file-secret"}, "server": {"port": 80}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Revalidate.Secret != "env-secret" || !cfg.Production || cfg.Server.Port != 4321 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.BuildID != "env-build" || cfg.Revalidate.NATS.URL != "nats://queue:4222" {
		t.Errorf("BuildID/NATS = %q/%q", cfg.BuildID, cfg.Revalidate.NATS.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "V103"},
		{"negative timeout", func(c *Config) { c.Cache.LoaderTimeout = Duration(-time.Second) }, "V104"},
		{"production without secret", func(c *Config) { c.Production = true }, "V105"},
		{"production with secret", func(c *Config) {
			c.Production = true
			c.Revalidate.Secret = "x"
		}, ""},
		{"relative mount", func(c *Config) { c.Paths.APIBase = "api" }, "V107"},
		{"shared mount", func(c *Config) { c.Paths.DataPrefix = c.Paths.APIBase }, "V107"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if got := errorCode(err); got != tt.want {
				t.Errorf("Validate() = %v, want code %q", err, tt.want)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "saved"
	cfg.Cache.LoaderTimeout = Duration(1500 * time.Millisecond)

	for _, name := range []string{"out.json", "out.yaml"} {
		path := filepath.Join(dir, name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s): %v", name, err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "1.5s") {
			t.Errorf("%s does not store durations as strings:\n%s", name, data)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		if loaded.Name != "saved" || loaded.Cache.LoaderTimeout != cfg.Cache.LoaderTimeout {
			t.Errorf("%s round trip = %+v", name, loaded)
		}
	}
}

func TestAddr(t *testing.T) {
	cfg := New()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	if cfg.Addr() != "0.0.0.0:8080" || cfg.URL() != "http://0.0.0.0:8080" {
		t.Errorf("Addr/URL = %s %s", cfg.Addr(), cfg.URL())
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, YAMLFileName, "name: x\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists mismatch")
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ConfigFileName, `{"export": {"output": "public"}}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputPath() != filepath.Join(dir, "public") {
		t.Errorf("OutputPath() = %q", cfg.OutputPath())
	}
	if cfg.ManifestPath() != "" {
		t.Errorf("ManifestPath() = %q, want empty", cfg.ManifestPath())
	}

	cfg.Paths.Manifest = "dist/manifest.json"
	if cfg.ManifestPath() != filepath.Join(dir, "dist", "manifest.json") {
		t.Errorf("ManifestPath() = %q", cfg.ManifestPath())
	}
}
