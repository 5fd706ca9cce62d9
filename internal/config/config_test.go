package config

import (
	"os"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "extractions.queued" {
		t.Fatalf("expected default subject extractions.queued, got %q", cfg.NATSSubject)
	}
	if cfg.ModelTimeoutSeconds != 120 {
		t.Fatalf("expected default model timeout 120s, got %d", cfg.ModelTimeoutSeconds)
	}
	if cfg.ModelCallsPerMinute != 30 {
		t.Fatalf("expected default calls per minute 30, got %d", cfg.ModelCallsPerMinute)
	}
}

func TestLoadEnvOverridesWinOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yaml := "api_port: \"9000\"\nmodel_id: \"from-yaml\"\nuse_synthetic_model: true\n"
	if err := writeFile(path, yaml); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MODEL_ID", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" {
		t.Fatalf("expected yaml api port 9000, got %q", cfg.APIPort)
	}
	if cfg.ModelID != "from-env" {
		t.Fatalf("expected env model id to win, got %q", cfg.ModelID)
	}
	if !cfg.UseSyntheticModel {
		t.Fatalf("expected synthetic model enabled from yaml")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := writeFile(path, "api_port: [unclosed"); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
