package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}
	return path
}

func TestResolveSecret(t *testing.T) {
	cases := []struct {
		name    string
		env     string
		file    string
		noFile  bool
		want    string
		wantErr bool
	}{
		{name: "env only", env: "env-value", noFile: true, want: "env-value"},
		{name: "file only", file: "file-value\n", want: "file-value"},
		{name: "file wins over env", env: "env-value", file: "file-value", want: "file-value"},
		{name: "neither set", noFile: true, want: ""},
		{name: "trims whitespace", file: "  secret-value  \n\n", want: "secret-value"},
		{name: "empty file", file: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const envName = "LORECRAFTER_TEST_SECRET"
			t.Setenv(envName, tc.env)
			if tc.noFile {
				t.Setenv(envName+"_FILE", "")
			} else {
				t.Setenv(envName+"_FILE", writeSecret(t, tc.file))
			}

			got, err := ResolveSecret(envName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveSecretMissingFile(t *testing.T) {
	t.Setenv("LORECRAFTER_TEST_SECRET_FILE", "/nonexistent/path/to/secret")
	if _, err := ResolveSecret("LORECRAFTER_TEST_SECRET"); err == nil {
		t.Error("expected error when file does not exist")
	}
}

func TestConfigSecretsFromFiles(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GROQ_API_KEY_FILE", writeSecret(t, "gsk-from-file\n"))
	t.Setenv("LORECRAFTER_S3_SECRET_KEY", "minio-secret")

	cfg := Default()
	if err := cfg.resolveSecrets(); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.GroqAPIKey != "gsk-from-file" {
		t.Errorf("groq key = %q", cfg.LLM.GroqAPIKey)
	}
	if cfg.Assets.S3.SecretKey != "minio-secret" {
		t.Errorf("s3 secret = %q", cfg.Assets.S3.SecretKey)
	}
	if !cfg.HasLLMKey() {
		t.Error("groq provider should report a key")
	}
}
