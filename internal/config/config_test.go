package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/troupe/internal/models"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Data: DataConfig{
			Root:          "/tmp/kb",
			CharactersDir: DefaultCharactersDir,
			UnitsDir:      DefaultUnitsDir,
			HistoryFile:   DefaultHistoryFile,
		},
		Ranks:   RanksConfig{UnitCapacity: []int{1, 2, 8, 32, 128}},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Data.Root)
	assert.Equal(t, "Characters", cfg.Data.CharactersDir)
	assert.Equal(t, "Units", cfg.Data.UnitsDir)
	assert.Equal(t, "history.yaml", cfg.Data.HistoryFile)
	assert.Equal(t, models.DefaultCapacity, cfg.Ranks.Capacity())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4j.URI)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troupe.yaml")
	content := `
data:
  root: /srv/world
  units_dir: Factions
ranks:
  unit_capacity: [0, 3, 9]
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TROUPE_LOGGING_LEVEL", "debug")
	t.Setenv("TROUPE_NEO4J_PASSWORD", "hunter22")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/world", cfg.Data.Root)
	assert.Equal(t, "Factions", cfg.Data.UnitsDir)
	assert.Equal(t, "Characters", cfg.Data.CharactersDir)
	assert.Equal(t, models.CapacityPolicy{0, 3, 9}, cfg.Ranks.Capacity())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "hunter22", cfg.Neo4j.Password)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troupe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranks:\n  unit_capacity: [4, 2]\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranks.unit_capacity")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty root", func(c *Config) { c.Data.Root = "" }, "data.root"},
		{"empty characters dir", func(c *Config) { c.Data.CharactersDir = "" }, "data.characters_dir"},
		{"same dirs", func(c *Config) { c.Data.UnitsDir = c.Data.CharactersDir }, "must differ"},
		{"empty history", func(c *Config) { c.Data.HistoryFile = "" }, "data.history_file"},
		{"empty capacity", func(c *Config) { c.Ranks.UnitCapacity = nil }, "ranks.unit_capacity"},
		{"negative capacity", func(c *Config) { c.Ranks.UnitCapacity = []int{-1} }, "ranks.unit_capacity"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCfg()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestNeo4jConfig_StringMasksPassword(t *testing.T) {
	s := Neo4jConfig{URI: "neo4j://db:7687", Username: "neo4j", Password: "supersecret"}.String()
	assert.NotContains(t, s, "supersecret")
	assert.Contains(t, s, "su****et")
	assert.Contains(t, Neo4jConfig{Password: "abc"}.String(), "Password:***")
}
