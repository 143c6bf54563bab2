package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Solr: SolrConfig{Host: "localhost"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingSolrHost(t *testing.T) {
	cfg := validConfig()
	cfg.Solr.Host = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing solr host")
	}
}

func TestValidate_InvalidScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Solr.Scheme = "ftp"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid scheme")
	}
	expected := `solr.scheme must be "http" or "https", got "ftp"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_BadTemplate(t *testing.T) {
	cfg := validConfig()
	cfg.Templates = []TemplateConfig{{ID: "x", RootDir: "relative/path"}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid template")
	}
}

func TestValidate_TemplateDefaultOutsidePath(t *testing.T) {
	cfg := validConfig()
	cfg.Templates = []TemplateConfig{{
		ID:            "obs",
		RootDir:       "/data/obs",
		PathParts:     []string{"project", "time_frequency", "file_name"},
		DatasetParts:  []string{"project"},
		FileNameParts: []string{"variable", "time"},
		Defaults:      map[string]string{"time_frequency_x": "mon"},
	}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for a default naming no path part")
	}
	if !strings.Contains(err.Error(), "time_frequency_x") {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 0 {
		t.Errorf("expected WriteTimeoutSec=0, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Solr.Scheme != "http" || cfg.Solr.Port != 8983 {
		t.Errorf("expected http:8983, got %s:%d", cfg.Solr.Scheme, cfg.Solr.Port)
	}
	if cfg.Solr.FilesCore != "files" || cfg.Solr.LatestCore != "latest" {
		t.Errorf("unexpected cores: files=%q latest=%q", cfg.Solr.FilesCore, cfg.Solr.LatestCore)
	}
	if cfg.Solr.BatchSize != 10000 {
		t.Errorf("expected BatchSize=10000, got %d", cfg.Solr.BatchSize)
	}
	if cfg.Solr.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Solr.TimeoutSec)
	}
}

func TestApplyDefaults_SingleCore(t *testing.T) {
	cfg := Config{Solr: SolrConfig{SingleCore: true, LatestCore: "latest"}}
	cfg.ApplyDefaults()

	if cfg.Solr.LatestCore != "" {
		t.Errorf("single core must clear latest core, got %q", cfg.Solr.LatestCore)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Solr: SolrConfig{Port: 9000, FilesCore: "all", LatestCore: "newest", BatchSize: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Solr.Port != 9000 || cfg.Solr.FilesCore != "all" || cfg.Solr.LatestCore != "newest" {
		t.Errorf("solr settings overridden: %+v", cfg.Solr)
	}
	if cfg.Solr.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Solr.BatchSize)
	}
}

func TestRegistry_Builtin(t *testing.T) {
	cfg := validConfig()
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.IDs()) != 2 {
		t.Errorf("expected builtin templates, got %v", reg.IDs())
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := `
http:
  port: ${DATABROWSER_TEST_PORT:-7777}
solr:
  host: ${DATABROWSER_TEST_SOLR}
  single_core: true
templates:
  - id: obs
    root_dir: /data/obs/
    parts_dir: [project, variable, version, file_name]
    parts_dataset: [project, variable]
    parts_versioned_dataset: [project, variable, version]
    parts_file_name: [variable, time]
    file_suffix: .nc
    defaults:
      project: obs
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABROWSER_TEST_SOLR", "solr.internal")
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 7777 {
		t.Errorf("expected default port 7777, got %d", cfg.HTTP.Port)
	}
	if cfg.Solr.Host != "solr.internal" {
		t.Errorf("expected expanded host, got %q", cfg.Solr.Host)
	}
	if cfg.Solr.LatestCore != "" {
		t.Errorf("expected single core, got latest core %q", cfg.Solr.LatestCore)
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	tmpl, err := reg.Get("obs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tmpl.RootDir() != "/data/obs" || !tmpl.IsVersioned() {
		t.Errorf("unexpected template: root=%q versioned=%v", tmpl.RootDir(), tmpl.IsVersioned())
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DATABROWSER_X", "set")
	got := string(expandEnvVars([]byte("a=${DATABROWSER_X} b=${DATABROWSER_UNSET:-fallback} c=${DATABROWSER_UNSET}")))
	want := "a=set b=fallback c="
	if got != want {
		t.Errorf("expandEnvVars = %q, want %q", got, want)
	}
}
