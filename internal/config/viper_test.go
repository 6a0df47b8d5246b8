package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvKeys = []string{
	"SALES_LOG_LEVEL", "SALES_LOG_FORMAT",
	"SALES_SOURCE_URL", "SALES_SOURCE_KEY", "SALES_SOURCE_TABLE", "SALES_SOURCE_PAGE_SIZE",
	"SALES_SOURCE_ROW_LIMIT", "SALES_SOURCE_TIMEOUT_SECONDS",
	"SALES_TRANSFORM_CUTOFF_DATE", "SALES_TRANSFORM_FILL_GAPS",
	"SALES_CSV_DELIMITER", "SALES_PATHS_REPORT_DIR", "SALES_STORE_PATH",
	"SUPABASE_URL", "SUPABASE_KEY",
}

// clearTestEnvVars blanks every variable the config reads; viper treats an
// empty variable as unset.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range testEnvKeys {
		t.Setenv(key, "")
	}
}

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "", config.Source.URL)
	assert.Equal(t, "ventas_raw", config.Source.Table)
	assert.Equal(t, 1000, config.Source.PageSize)
	assert.Equal(t, 100000, config.Source.RowLimit)
	assert.Equal(t, 60*time.Second, config.Source.Timeout())
	assert.Equal(t, "2025-12-31", config.Transform.CutoffDate)
	assert.False(t, config.Transform.FillGaps)
	assert.Equal(t, ',', config.CSV.Rune())
	assert.Equal(t, "data/raw/ventas_raw.csv", config.Paths.RawFile)
	assert.Equal(t, "outputs/reports", config.Paths.ReportDir)
	assert.Equal(t, "", config.Store.Path)

	cutoff, err := config.Transform.Cutoff()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), cutoff)
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	testEnvVars := map[string]string{
		"SALES_LOG_LEVEL":             "debug",
		"SALES_LOG_FORMAT":            "json",
		"SALES_CSV_DELIMITER":         ";",
		"SALES_TRANSFORM_CUTOFF_DATE": "2024-06-30",
		"SALES_TRANSFORM_FILL_GAPS":   "true",
		"SALES_SOURCE_ROW_LIMIT":      "250",
		"SUPABASE_URL":                "https://example.supabase.co",
		"SUPABASE_KEY":                "test-key",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, ';', config.CSV.Rune())
	assert.Equal(t, "2024-06-30", config.Transform.CutoffDate)
	assert.True(t, config.Transform.FillGaps)
	assert.Equal(t, 250, config.Source.RowLimit)
	assert.Equal(t, "https://example.supabase.co", config.Source.URL)
	assert.Equal(t, "test-key", config.Source.Key)
}

func TestInitializeConfig_PrefixedCredentialsWin(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	t.Setenv("SUPABASE_URL", "https://fallback.example")
	t.Setenv("SALES_SOURCE_URL", "https://primary.example")

	config, err := InitializeConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", config.Source.URL)
}

func TestInitializeConfig_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)

	configFile := filepath.Join(t.TempDir(), "sales.yaml")
	configContent := `
log:
  level: "warn"
source:
  table: "ventas_2025"
  page_size: 500
transform:
  cutoff_date: "2025-06-30"
csv:
  delimiter: "|"
store:
  path: "data/runs.db"
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0600))

	t.Setenv("SALES_LOG_LEVEL", "error")

	config, err := InitializeConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level, "env var wins over file")
	assert.Equal(t, "ventas_2025", config.Source.Table)
	assert.Equal(t, 500, config.Source.PageSize)
	assert.Equal(t, "2025-06-30", config.Transform.CutoffDate)
	assert.Equal(t, '|', config.CSV.Rune())
	assert.Equal(t, "data/runs.db", config.Store.Path)
}

func TestInitializeConfig_DiscoversFileInWorkingDirectory(t *testing.T) {
	clearTestEnvVars(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("paths:\n  report_dir: \"reports\"\n"), 0600))
	t.Chdir(dir)

	config, err := InitializeConfig("")
	require.NoError(t, err)
	assert.Equal(t, "reports", config.Paths.ReportDir)
}

func TestInitializeConfig_MissingExplicitFile(t *testing.T) {
	clearTestEnvVars(t)
	_, err := InitializeConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, "invalid log level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"invalid CSV delimiter", func(c *Config) { c.CSV.Delimiter = "abc" }, "CSV delimiter must be a single character"},
		{"invalid cutoff", func(c *Config) { c.Transform.CutoffDate = "31/12/2025" }, "transform.cutoff_date must be YYYY-MM-DD"},
		{"zero page size", func(c *Config) { c.Source.PageSize = 0 }, "source.page_size must be positive"},
		{"timeout out of range", func(c *Config) { c.Source.TimeoutSeconds = 0 }, "source.timeout_seconds must be between 1 and 600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			require.NoError(t, validateConfig(config))

			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	clearTestEnvVars(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SUPABASE_KEY=from-dotenv\n"), 0600))
	t.Chdir(dir)
	// godotenv does not override variables that are already present.
	require.NoError(t, os.Unsetenv("SUPABASE_KEY"))

	loaded, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ".env", loaded)
	assert.Equal(t, "from-dotenv", os.Getenv("SUPABASE_KEY"))
}

func TestLoadEnv_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	loaded, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "", loaded)
}
