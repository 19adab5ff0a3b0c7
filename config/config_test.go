package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseDir, s.BaseDir)
	assert.Equal(t, 0.2, s.TestSize)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, "standard", s.Scaler)
	assert.Equal(t, DefaultServerAddr, s.ServerAddr)
	assert.Empty(t, s.ConfigPath, "empty config path selects the embedded model config")
	assert.Equal(t, filepath.Join("artifacts", "history", "history.json"), s.Paths.HistoryPath)
	assert.Equal(t, filepath.Join("artifacts", "models", "model.gob"), s.Paths.ModelPath)
	assert.Equal(t, filepath.Join("artifacts", "models", "preprocessor.gob"), s.Paths.PreprocessorPath)
}

func TestLoad_FileAndEnv(t *testing.T) {
	file := writeFile(t, "settings.yaml", `
base_dir: /srv/run
test_size: 0.3
n_jobs: 4
min_score: 0.6
scaler: minmax
`)
	t.Setenv("SCIGO_N_JOBS", "2")
	t.Setenv("CONFIG_PATH", "models.yaml")

	s, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "/srv/run", s.BaseDir)
	assert.Equal(t, 0.3, s.TestSize)
	assert.Equal(t, 2, s.NJobs, "environment wins over the file")
	assert.Equal(t, 0.6, s.MinScore)
	assert.Equal(t, "minmax", s.Scaler)
	assert.Equal(t, "models.yaml", s.ConfigPath)
	assert.Equal(t, filepath.Join("/srv/run", "data", "processed", "train.csv"), s.Paths.TrainPath)
}

func TestLoad_UnprefixedEnv(t *testing.T) {
	base := t.TempDir()
	t.Setenv("BASE_DIR", base)
	t.Setenv("DEBUG", "true")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, base, s.BaseDir)
	assert.True(t, s.Debug)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		param   string
	}{
		{"test size zero", "test_size: 0", "test_size"},
		{"test size one", "test_size: 1", "test_size"},
		{"negative jobs", "n_jobs: -1", "n_jobs"},
		{"min score above one", "min_score: 1.5", "min_score"},
		{"log level", "log_level: loud", "log_level"},
		{"scaler", "scaler: robust", "scaler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "settings.yaml", tt.content))
			require.Error(t, err)

			var ce *errors.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.param, ce.Param)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, errors.KindPersistence, errors.KindOf(err))
}

func TestEnsureDirectories(t *testing.T) {
	s := &Settings{BaseDir: t.TempDir()}
	s.Paths = NewPaths(s.BaseDir)
	require.NoError(t, s.EnsureDirectories())

	for _, dir := range []string{s.Paths.RawDataDir, s.Paths.ProcessedDataDir, s.Paths.ModelDir, s.Paths.HistoryDir, s.Paths.ReportsDir, s.Paths.LogDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestIngestConfig(t *testing.T) {
	s := &Settings{BaseDir: "b", InputPath: "in.csv", TestSize: 0.25, Seed: 7}
	s.Paths = NewPaths(s.BaseDir)

	cfg := s.IngestConfig()
	assert.Equal(t, "in.csv", cfg.InputPath)
	assert.Equal(t, s.Paths.RawDataPath, cfg.RawPath)
	assert.Equal(t, s.Paths.TestPath, cfg.TestPath)
	assert.Equal(t, 0.25, cfg.TestSize)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")), "missing file is ignored")

	const key = "SCIGO_SELECT_TEST_ENV_FILE"
	t.Cleanup(func() { os.Unsetenv(key) })
	require.NoError(t, LoadEnvFile(writeFile(t, ".env", key+"=loaded\n")))
	assert.Equal(t, "loaded", os.Getenv(key))
}
