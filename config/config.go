// Package config loads the process settings: artifact locations, the model
// configuration file, ingestion parameters and the server address.
//
// Settings are read once with viper (optional file plus environment) and
// passed explicitly to the pipelines. There is no global instance.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/scigo-select/dataset"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
	"github.com/YuminosukeSato/scigo-select/pkg/log"
	"github.com/YuminosukeSato/scigo-select/preprocessing"
)

// EnvPrefix prefixes every environment override (SCIGO_TEST_SIZE, ...).
const EnvPrefix = "SCIGO"

// Default values.
const (
	DefaultBaseDir    = "artifacts"
	DefaultInputPath  = "data/data.csv"
	DefaultServerAddr = ":8000"
	DefaultLogLevel   = "info"
)

// Settings holds the resolved configuration.
type Settings struct {
	BaseDir    string  `mapstructure:"base_dir"`
	ConfigPath string  `mapstructure:"config_path"`
	InputPath  string  `mapstructure:"input_path"`
	Debug      bool    `mapstructure:"debug"`
	LogLevel   string  `mapstructure:"log_level"`
	TestSize   float64 `mapstructure:"test_size"`
	Seed       int64   `mapstructure:"seed"`
	NJobs      int     `mapstructure:"n_jobs"`
	MinScore   float64 `mapstructure:"min_score"`
	Scaler     string  `mapstructure:"scaler"`
	ServerAddr string  `mapstructure:"server_addr"`

	Paths Paths `mapstructure:"-"`
}

// Paths are the artifact locations derived from BaseDir.
type Paths struct {
	RawDataDir       string
	ProcessedDataDir string
	ModelDir         string
	LogDir           string
	HistoryDir       string
	ReportsDir       string

	RawDataPath      string
	TrainPath        string
	TestPath         string
	ModelPath        string
	PreprocessorPath string
	HistoryPath      string
}

// NewPaths lays out the artifact tree under base.
func NewPaths(base string) Paths {
	p := Paths{
		RawDataDir:       filepath.Join(base, "data", "raw"),
		ProcessedDataDir: filepath.Join(base, "data", "processed"),
		ModelDir:         filepath.Join(base, "models"),
		LogDir:           filepath.Join(base, "logs"),
		HistoryDir:       filepath.Join(base, "history"),
		ReportsDir:       filepath.Join(base, "reports"),
	}
	p.RawDataPath = filepath.Join(p.RawDataDir, "data.csv")
	p.TrainPath = filepath.Join(p.ProcessedDataDir, "train.csv")
	p.TestPath = filepath.Join(p.ProcessedDataDir, "test.csv")
	p.ModelPath = filepath.Join(p.ModelDir, "model.gob")
	p.PreprocessorPath = filepath.Join(p.ModelDir, "preprocessor.gob")
	p.HistoryPath = filepath.Join(p.HistoryDir, "history.json")
	return p
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", DefaultBaseDir)
	v.SetDefault("config_path", "")
	v.SetDefault("input_path", DefaultInputPath)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("test_size", dataset.DefaultTestSize)
	v.SetDefault("seed", dataset.DefaultSeed)
	v.SetDefault("n_jobs", 0)
	v.SetDefault("min_score", 0.0)
	v.SetDefault("scaler", preprocessing.KindStandard)
	v.SetDefault("server_addr", DefaultServerAddr)
}

// Load resolves the settings. file is an optional YAML, JSON or TOML file;
// environment variables override it. BASE_DIR, CONFIG_PATH and DEBUG are
// honoured without the prefix.
func Load(file string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"base_dir":    "BASE_DIR",
		"config_path": "CONFIG_PATH",
		"debug":       "DEBUG",
	} {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewPersistenceError("read settings", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.NewConfigurationError("settings", file, err.Error())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Debug {
		s.LogLevel = "debug"
	}
	s.Paths = NewPaths(s.BaseDir)
	return &s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.BaseDir == "" {
		return errors.NewConfigurationError("base_dir", s.BaseDir, "must not be empty")
	}
	if s.TestSize <= 0 || s.TestSize >= 1 {
		return errors.NewConfigurationError("test_size", s.TestSize, "must be in (0, 1)")
	}
	if s.NJobs < 0 {
		return errors.NewConfigurationError("n_jobs", s.NJobs, "must be >= 0")
	}
	if s.MinScore < 0 || s.MinScore > 1 {
		return errors.NewConfigurationError("min_score", s.MinScore, "must be in [0, 1]")
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return errors.NewConfigurationError("log_level", s.LogLevel, err.Error())
	}
	if _, err := preprocessing.New(s.Scaler); err != nil {
		return err
	}
	return nil
}

// IngestConfig returns the ingestion parameters for these settings.
func (s *Settings) IngestConfig() dataset.IngestConfig {
	return dataset.IngestConfig{
		InputPath: s.InputPath,
		RawPath:   s.Paths.RawDataPath,
		TrainPath: s.Paths.TrainPath,
		TestPath:  s.Paths.TestPath,
		TestSize:  s.TestSize,
		Seed:      s.Seed,
	}
}

// EnsureDirectories creates the artifact tree.
func (s *Settings) EnsureDirectories() error {
	for _, dir := range []string{
		s.Paths.RawDataDir,
		s.Paths.ProcessedDataDir,
		s.Paths.ModelDir,
		s.Paths.LogDir,
		s.Paths.HistoryDir,
		s.Paths.ReportsDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewPersistenceError("create directory", dir, err)
		}
	}
	return nil
}

// LoadEnvFile loads variables from a dotenv file. A missing file is not an
// error; variables already set in the environment win.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.NewPersistenceError("load env file", path, err)
	}
	return nil
}
