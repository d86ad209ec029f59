package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// No config file - use defaults
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DbPath == "" {
		t.Error("DbPath should not be empty")
	}
	if c.BlobBackend != "filesystem" {
		t.Errorf("BlobBackend = %q, want filesystem", c.BlobBackend)
	}
	if c.SignupCredits != 10 {
		t.Errorf("SignupCredits = %d, want 10", c.SignupCredits)
	}
	if c.Costs.Generate != 2 || c.Costs.Edit != 1 {
		t.Errorf("Costs = %+v, want defaults", c.Costs)
	}
	if c.GeminiAPIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("GeminiAPIKeyEnv = %q", c.GeminiAPIKeyEnv)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "lumen")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `db_path: /custom/lumen.db
blob_backend: s3
signup_credits: 25
s3:
  bucket: lumen-images
  region: us-east-1
costs:
  generate: 4
  edit: 2
  filter: 2
  adjust: 2
  upscale: 3
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DbPath != "/custom/lumen.db" {
		t.Errorf("DbPath = %q", c.DbPath)
	}
	if c.BlobBackend != "s3" {
		t.Errorf("BlobBackend = %q", c.BlobBackend)
	}
	if c.S3.Bucket != "lumen-images" {
		t.Errorf("S3.Bucket = %q", c.S3.Bucket)
	}
	if c.SignupCredits != 25 {
		t.Errorf("SignupCredits = %d", c.SignupCredits)
	}
	if c.Costs.Generate != 4 {
		t.Errorf("Costs.Generate = %d", c.Costs.Generate)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("LUMEN_DB_PATH", "/env/lumen.db")
	t.Setenv("LUMEN_BLOB_BACKEND", "memory")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DbPath != "/env/lumen.db" {
		t.Errorf("DbPath = %q", c.DbPath)
	}
	if c.BlobBackend != "memory" {
		t.Errorf("BlobBackend = %q", c.BlobBackend)
	}
}
