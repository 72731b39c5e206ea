package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/troupe/internal/models"
)

const (
	// DefaultCharactersDir is the directory of character records under the data root.
	DefaultCharactersDir = "Characters"

	// DefaultUnitsDir is the directory of unit records under the data root.
	DefaultUnitsDir = "Units"

	// DefaultHistoryFile is the append-only change log under the data root.
	DefaultHistoryFile = "history.yaml"
)

// Config holds all configuration for troupe.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Ranks   RanksConfig   `mapstructure:"ranks"`
	Shell   ShellConfig   `mapstructure:"shell"`
	Logging LoggingConfig `mapstructure:"logging"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
}

// DataConfig locates the knowledge base. Relative directories resolve against Root.
type DataConfig struct {
	Root          string `mapstructure:"root"`
	CharactersDir string `mapstructure:"characters_dir"`
	UnitsDir      string `mapstructure:"units_dir"`
	HistoryFile   string `mapstructure:"history_file"`
}

// RanksConfig holds the unit capacity policy, indexed by unit rank.
type RanksConfig struct {
	UnitCapacity []int `mapstructure:"unit_capacity"`
}

// Capacity returns the configured policy.
func (r RanksConfig) Capacity() models.CapacityPolicy {
	return models.CapacityPolicy(r.UnitCapacity)
}

// ShellConfig holds interactive prompt settings.
type ShellConfig struct {
	HistoryFile string `mapstructure:"history_file"`
}

// Neo4jConfig holds graph export settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}",
		c.URI, c.Username, maskSecret(c.Password), c.Database)
}

// maskSecret shows first 2 + last 2 chars, replacing the middle with asterisks.
func maskSecret(s string) string {
	const visible = 2
	if len(s) <= visible*2 {
		return "***"
	}
	return s[:visible] + "****" + s[len(s)-visible:]
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A non-empty configFile
// replaces the default search path.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("data.root", ".")
	v.SetDefault("data.characters_dir", DefaultCharactersDir)
	v.SetDefault("data.units_dir", DefaultUnitsDir)
	v.SetDefault("data.history_file", DefaultHistoryFile)

	v.SetDefault("ranks.unit_capacity", []int(models.DefaultCapacity))

	v.SetDefault("shell.history_file", filepath.Join(homeDir(), ".troupe", "shell_history"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".troupe"))
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("TROUPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("neo4j.password", "TROUPE_NEO4J_PASSWORD", "NEO4J_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return fmt.Errorf("data.root must not be empty")
	}
	if c.Data.CharactersDir == "" {
		return fmt.Errorf("data.characters_dir must not be empty")
	}
	if c.Data.UnitsDir == "" {
		return fmt.Errorf("data.units_dir must not be empty")
	}
	if c.Data.CharactersDir == c.Data.UnitsDir {
		return fmt.Errorf("data.characters_dir and data.units_dir must differ")
	}
	if c.Data.HistoryFile == "" {
		return fmt.Errorf("data.history_file must not be empty")
	}
	if err := c.Ranks.Capacity().Validate(); err != nil {
		return fmt.Errorf("ranks.unit_capacity: %w", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
