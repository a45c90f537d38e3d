// Package manifest handles minima.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "minima.toml"

// Manifest represents a minima.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Parser  ParserConfig  `toml:"parser"`
	Log     LogConfig     `toml:"log"`
	History HistoryConfig `toml:"history"`
	REPL    REPLConfig    `toml:"repl"`

	// Dir is the directory containing the minima.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"` // script run when no file is given
}

// ParserConfig configures how sources are parsed.
type ParserConfig struct {
	Template       bool `toml:"template"`
	MaxTokenLength int  `toml:"max-token-length"`
}

// LogConfig configures commonlog output.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"` // empty means stderr
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Database string `toml:"database"`
	Record   bool   `toml:"record"` // record every run, as if -record were given
}

// REPLConfig configures the interactive prompt.
type REPLConfig struct {
	HistoryFile string `toml:"history-file"`
	Prompt      string `toml:"prompt"`
}

// Default returns the configuration used when no minima.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.History.Database == "" {
		m.History.Database = filepath.Join(".minima", "history.db")
	}
	if m.REPL.HistoryFile == "" {
		m.REPL.HistoryFile = filepath.Join(".minima", "repl_history")
	}
	if m.REPL.Prompt == "" {
		m.REPL.Prompt = "mi> "
	}
}

// Load parses a minima.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if m.Parser.MaxTokenLength < 0 {
		return nil, fmt.Errorf("%s: parser.max-token-length must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a minima.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// EntryPath returns the absolute path of the entry script, or "" if none.
func (m *Manifest) EntryPath() string { return m.resolve(m.Project.Entry) }

// DatabasePath returns the absolute path of the run history database.
func (m *Manifest) DatabasePath() string { return m.resolve(m.History.Database) }

// HistoryFilePath returns the absolute path of the REPL history file.
func (m *Manifest) HistoryFilePath() string { return m.resolve(m.REPL.HistoryFile) }

// LogFilePath returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogFilePath() string { return m.resolve(m.Log.File) }
