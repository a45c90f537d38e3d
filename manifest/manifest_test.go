package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a minima.toml
	dir := t.TempDir()
	tomlContent := `
[project]
name = "pages"
entry = "site/index.mi"

[parser]
template = true
max-token-length = 256

[log]
verbosity = 2
file = "logs/minima.log"

[history]
database = "/var/lib/minima/runs.db"
record = true

[repl]
history-file = ".history"
prompt = "> "
`
	if err := os.WriteFile(filepath.Join(dir, "minima.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "pages" {
		t.Errorf("project name = %q, want pages", m.Project.Name)
	}
	if !m.Parser.Template {
		t.Error("parser template = false, want true")
	}
	if m.Parser.MaxTokenLength != 256 {
		t.Errorf("max-token-length = %d, want 256", m.Parser.MaxTokenLength)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if !m.History.Record {
		t.Error("history record = false, want true")
	}
	if m.REPL.Prompt != "> " {
		t.Errorf("repl prompt = %q, want %q", m.REPL.Prompt, "> ")
	}

	absDir, _ := filepath.Abs(dir)
	if got, want := m.EntryPath(), filepath.Join(absDir, "site", "index.mi"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if got := m.DatabasePath(); got != "/var/lib/minima/runs.db" {
		t.Errorf("DatabasePath() = %q, absolute paths should be kept", got)
	}
	if got, want := m.LogFilePath(), filepath.Join(absDir, "logs", "minima.log"); got != want {
		t.Errorf("LogFilePath() = %q, want %q", got, want)
	}
	if got, want := m.HistoryFilePath(), filepath.Join(absDir, ".history"); got != want {
		t.Errorf("HistoryFilePath() = %q, want %q", got, want)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "minima.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Parser.Template {
		t.Error("template should default to false")
	}
	if m.History.Database != filepath.Join(".minima", "history.db") {
		t.Errorf("default database = %q", m.History.Database)
	}
	if m.REPL.Prompt != "mi> " {
		t.Errorf("default prompt = %q", m.REPL.Prompt)
	}
	if m.EntryPath() != "" {
		t.Errorf("EntryPath() = %q, want empty", m.EntryPath())
	}
	if m.LogFilePath() != "" {
		t.Errorf("LogFilePath() = %q, want empty", m.LogFilePath())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[project\nname = 1"},
		{"wrong type", "[parser]\ntemplate = \"yes\""},
		{"negative bound", "[parser]\nmax-token-length = -1"},
	}

	for _, tc := range tests {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "minima.toml"), []byte(tc.content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(dir); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "minima.toml"), []byte("[project]\nname = \"up\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "up" {
		t.Fatalf("FindAndLoad = %+v, want project up", m)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		// A minima.toml above the temp dir would be found; only fail when
		// it is not one we created.
		t.Logf("found manifest at %s", m.Dir)
	}
}

func TestDefault(t *testing.T) {
	m := Default("/work")
	if got := m.DatabasePath(); got != filepath.Join("/work", ".minima", "history.db") {
		t.Errorf("DatabasePath() = %q", got)
	}
}
