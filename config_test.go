package neokit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rlch/neokit"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".neokit.yaml")

	content := `neo4j:
  uri: bolt://localhost:7687
  username: neo4j
  database: movies
mcp:
  addr: ":9000"
openai:
  model: gpt-4o-mini
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := neokit.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}

	want := neokit.Profile{URI: "bolt://localhost:7687", Username: "neo4j", Database: "movies"}
	if diff := cmp.Diff(want, cfg.Profile()); diff != "" {
		t.Errorf("Profile() mismatch (-want +got):\n%s", diff)
	}

	if cfg.MCP.Addr != ":9000" {
		t.Errorf("MCP.Addr = %q, want :9000", cfg.MCP.Addr)
	}

	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
}

func TestFindConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")

	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, ".neokit.yaml")
	if err := os.WriteFile(want, []byte("neo4j:\n  uri: bolt://x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := neokit.FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig() error: %v", err)
	}

	if got != want {
		t.Errorf("FindConfig() = %q, want %q", got, want)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := &neokit.Config{Neo4j: &neokit.Profile{URI: "bolt://file", Username: "file-user"}}

	env := map[string]string{
		neokit.EnvNeo4jURI:      "neo4j://env:7687",
		neokit.EnvNeo4jPassword: "secret",
		neokit.EnvOpenAIKey:     "sk-test",
	}

	cfg.ApplyEnv(func(k string) string { return env[k] })

	want := neokit.Profile{URI: "neo4j://env:7687", Username: "file-user", Password: "secret"}
	if diff := cmp.Diff(want, cfg.Profile()); diff != "" {
		t.Errorf("Profile() mismatch (-want +got):\n%s", diff)
	}

	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
}

func TestLoad_EnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")

	content := "NEO4J_URI=bolt://dotenv:7687\nNEO4J_USERNAME=neo4j\nNEO4J_PASSWORD=pw\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{neokit.EnvNeo4jURI, neokit.EnvNeo4jUsername, neokit.EnvNeo4jPassword} {
		t.Setenv(k, "")
		os.Unsetenv(k) //nolint:errcheck
	}

	cfg, err := neokit.Load(dir, envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := neokit.Profile{URI: "bolt://dotenv:7687", Username: "neo4j", Password: "pw"}
	if diff := cmp.Diff(want, cfg.Profile()); diff != "" {
		t.Errorf("Profile() mismatch (-want +got):\n%s", diff)
	}

	if cfg.MCP.Name != neokit.DefaultMCPName || cfg.MCP.Path != neokit.DefaultMCPPath {
		t.Errorf("MCP defaults not applied: %+v", cfg.MCP)
	}

	if cfg.OpenAI.EmbeddingModel != neokit.DefaultEmbeddingModel {
		t.Errorf("EmbeddingModel = %q", cfg.OpenAI.EmbeddingModel)
	}
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile neokit.Profile
		wantErr bool
	}{
		{"complete", neokit.Profile{URI: "bolt://x", Username: "u", Password: "p"}, false},
		{"no uri", neokit.Profile{Username: "u", Password: "p"}, true},
		{"no user", neokit.Profile{URI: "bolt://x", Password: "p"}, true},
		{"no password", neokit.Profile{URI: "bolt://x", Username: "u"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil && !errors.Is(err, neokit.ErrInvalidProfile) {
				t.Errorf("Validate() error = %v, want ErrInvalidProfile", err)
			}
		})
	}

	p := neokit.Profile{URI: "bolt://x", Username: "u", Password: "p"}
	if p.Redacted().Password == "p" {
		t.Error("Redacted() leaked the password")
	}
}
