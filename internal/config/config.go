package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"schoolinfra/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Paths     PathConfig
	Database  DatabaseConfig
	Training  TrainingConfig
	Log       LogConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port          string
	GinMode       string
	ResultsSource string // "csv" or "db"
}

// PathConfig holds file system paths of data files and model artifacts
type PathConfig struct {
	DataDir    string
	ResultsCSV string
	ModelPath  string
	MLBPath    string
	ReportPath string
	RulesFile  string
}

// DatabaseConfig holds the optional results database connection
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	URL    string
}

// TrainingConfig holds model selection settings
type TrainingConfig struct {
	KMin      int
	KMax      int
	TestSize  float64
	Seed      int64
	Smoothing float64
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// ProfilingConfig holds the admin/pprof server settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

const (
	ResultsSourceCSV = "csv"
	ResultsSourceDB  = "db"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dataDir := getEnvOrDefault("DATA_DIR", ".")

	config := &Config{
		Server:    *loadServerConfig(),
		Paths:     *loadPathConfig(dataDir),
		Database:  *loadDatabaseConfig(),
		Training:  *loadTrainingConfig(),
		Log:       *loadLogConfig(),
		Profiling: *loadProfilingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:          getEnvOrDefault("PORT", "8080"),
		GinMode:       getEnvOrDefault("GIN_MODE", "release"),
		ResultsSource: strings.ToLower(getEnvOrDefault("RESULTS_SOURCE", ResultsSourceCSV)),
	}
}

func loadPathConfig(dataDir string) *PathConfig {
	return &PathConfig{
		DataDir:    dataDir,
		ResultsCSV: resolvePath(dataDir, getEnvOrDefault("RESULTS_CSV", "infrastructure_analysis_results.csv")),
		ModelPath:  resolvePath(dataDir, getEnvOrDefault("MODEL_PATH", "train_model.json")),
		MLBPath:    resolvePath(dataDir, getEnvOrDefault("MLB_PATH", "train_mlb.json")),
		ReportPath: resolvePath(dataDir, getEnvOrDefault("REPORT_PATH", "training_report.md")),
		RulesFile:  getEnvOrDefault("RULES_FILE", ""),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		URL:    getEnvOrDefault("DATABASE_URL", ""),
	}
}

func loadTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		KMin:      getEnvIntOrDefault("TRAIN_K_MIN", 5),
		KMax:      getEnvIntOrDefault("TRAIN_K_MAX", 9),
		TestSize:  getEnvFloatOrDefault("TRAIN_TEST_SIZE", 0.2),
		Seed:      int64(getEnvIntOrDefault("TRAIN_SEED", 42)),
		Smoothing: getEnvFloatOrDefault("MLKNN_SMOOTHING", 1.0),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	switch config.Server.ResultsSource {
	case ResultsSourceCSV:
	case ResultsSourceDB:
		if config.Database.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required when RESULTS_SOURCE=db")
		}
	default:
		return errors.ConfigInvalid("RESULTS_SOURCE must be csv or db")
	}
	if config.Database.Driver != "sqlite" && config.Database.Driver != "postgres" {
		return errors.ConfigInvalid("DATABASE_DRIVER must be sqlite or postgres")
	}
	if config.Training.KMin < 1 || config.Training.KMax < config.Training.KMin {
		return errors.ConfigInvalid("TRAIN_K_MIN must be >= 1 and <= TRAIN_K_MAX")
	}
	if config.Training.TestSize <= 0 || config.Training.TestSize >= 1 {
		return errors.ConfigInvalid("TRAIN_TEST_SIZE must be between 0 and 1")
	}
	if config.Training.Smoothing <= 0 {
		return errors.ConfigInvalid("MLKNN_SMOOTHING must be positive")
	}
	return nil
}

// resolvePath anchors relative file names at the data directory
func resolvePath(dataDir, name string) string {
	if filepath.IsAbs(name) || dataDir == "" {
		return name
	}
	return filepath.Join(dataDir, name)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
