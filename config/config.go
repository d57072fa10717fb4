package config

import "time"

// Config represents the complete unparser configuration
type Config struct {
	BaseDir string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Render  RenderConfig  `yaml:"render"`
	REPL    REPLConfig    `yaml:"repl"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, notice, warning, error, critical
	Format string `yaml:"format"` // text, color, or a go-logging format string
	Output string `yaml:"output"` // stderr, stdout, or a file path
}

// WatchConfig holds settings for the watch command
type WatchConfig struct {
	Dirs     []string      `yaml:"dirs"`     // Directories watched when none are given on the command line
	Debounce time.Duration `yaml:"debounce"` // Quiet period before a changed file is re-checked
}

// CorpusConfig holds settings for the round-trip result store
type CorpusConfig struct {
	Enabled     bool   `yaml:"enabled"`      // Record check results
	Driver      string `yaml:"driver"`       // sqlite, postgres, or mysql
	Path        string `yaml:"path"`         // SQLite database file (relative to the config file)
	DSN         string `yaml:"dsn"`          // Connection string for postgres and mysql
	MaxEntries  int    `yaml:"max_entries"`  // Truncate when this many results are stored
	TruncatePct int    `yaml:"truncate_pct"` // Percentage of oldest results removed on truncation
}

// RenderConfig holds settings for the render command
type RenderConfig struct {
	Verify bool `yaml:"verify"` // Reparse rendered output and fail when it differs
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	History string `yaml:"history"` // History file; empty uses the system temp directory
	Mode    string `yaml:"mode"`    // Initial input mode: ruby or sexp
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Corpus: CorpusConfig{
			Driver:      "sqlite",
			Path:        "unparser.db",
			MaxEntries:  10000,
			TruncatePct: 25,
		},
		REPL: REPLConfig{
			Mode: "ruby",
		},
	}
}
