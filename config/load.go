package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults when no file exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when the built-in defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg := Defaults()
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		cfg.BaseDir = wd
		resolvePaths(cfg)
		return cfg, "", nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = filepath.Dir(absPath)
	resolvePaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// resolvePaths makes relative paths absolute against cfg.BaseDir
func resolvePaths(cfg *Config) {
	if cfg.Corpus.Driver == "sqlite" && cfg.Corpus.Path != "" && !filepath.IsAbs(cfg.Corpus.Path) {
		cfg.Corpus.Path = filepath.Join(cfg.BaseDir, cfg.Corpus.Path)
	}
	for i, dir := range cfg.Watch.Dirs {
		if !filepath.IsAbs(dir) {
			cfg.Watch.Dirs[i] = filepath.Join(cfg.BaseDir, dir)
		}
	}
	if cfg.REPL.History != "" && !filepath.IsAbs(cfg.REPL.History) {
		cfg.REPL.History = filepath.Join(cfg.BaseDir, cfg.REPL.History)
	}
	if out := cfg.Logging.Output; out != "" && out != "stderr" && out != "stdout" && !filepath.IsAbs(out) {
		cfg.Logging.Output = filepath.Join(cfg.BaseDir, out)
	}
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > UNPARSER_CONFIG env > ./unparser.yaml > ~/.config/unparser/unparser.yaml
// An empty path with no error means no file was found and defaults apply.
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("UNPARSER_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("UNPARSER_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("unparser.yaml"); err == nil {
		return "unparser.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "unparser", "unparser.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

var (
	validLevels  = []string{"debug", "info", "notice", "warn", "warning", "error", "critical"}
	validDrivers = []string{"sqlite", "postgres", "mysql"}
	validModes   = []string{"ruby", "sexp"}
)

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Logging.Level != "" && !oneOf(strings.ToLower(cfg.Logging.Level), validLevels) {
		errs = append(errs, fmt.Sprintf("invalid logging.level: %q (must be one of %s)", cfg.Logging.Level, strings.Join(validLevels, ", ")))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, fmt.Sprintf("invalid watch.debounce: %s (must not be negative)", cfg.Watch.Debounce))
	}

	if cfg.Corpus.Enabled {
		switch {
		case !oneOf(cfg.Corpus.Driver, validDrivers):
			errs = append(errs, fmt.Sprintf("invalid corpus.driver: %q (must be one of %s)", cfg.Corpus.Driver, strings.Join(validDrivers, ", ")))
		case cfg.Corpus.Driver == "sqlite" && cfg.Corpus.Path == "":
			errs = append(errs, "corpus.path is required for the sqlite driver")
		case cfg.Corpus.Driver != "sqlite" && cfg.Corpus.DSN == "":
			errs = append(errs, fmt.Sprintf("corpus.dsn is required for the %s driver", cfg.Corpus.Driver))
		}
	}
	if cfg.Corpus.MaxEntries < 0 {
		errs = append(errs, fmt.Sprintf("invalid corpus.max_entries: %d (must not be negative)", cfg.Corpus.MaxEntries))
	}
	if cfg.Corpus.TruncatePct < 0 || cfg.Corpus.TruncatePct > 100 {
		errs = append(errs, fmt.Sprintf("invalid corpus.truncate_pct: %d (must be 0-100)", cfg.Corpus.TruncatePct))
	}

	if cfg.REPL.Mode != "" && !oneOf(cfg.REPL.Mode, validModes) {
		errs = append(errs, fmt.Sprintf("invalid repl.mode: %q (must be ruby or sexp)", cfg.REPL.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
