package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/oztfix/pkg/constants"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Run configuration
	DataDir         string
	OutputDir       string
	Ignore          bool
	ContinueOnError bool
	DryRun          bool
	Strict          bool
	SuffixFallback  bool
	Report          string
	Provenance      string
	ExcludedFields  []string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. OZTFIX_* environment variables
//  3. .env files
//  4. Config file (~/.oztfix.yaml or ./.oztfix.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv(constants.EnvPrefix + "_CONFIG"))
}

func loadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("outputdir", "./")
	v.SetDefault("suffix_fallback", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.ConfigFileName)

		// Missing config files are fine
		_ = v.ReadInConfig()
	}

	return &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),

		ConfigFile: v.ConfigFileUsed(),

		DataDir:         v.GetString("datadir"),
		OutputDir:       v.GetString("outputdir"),
		Ignore:          v.GetBool("ignore"),
		ContinueOnError: v.GetBool("continue_on_error"),
		DryRun:          v.GetBool("dry_run"),
		Strict:          v.GetBool("strict"),
		SuffixFallback:  v.GetBool("suffix_fallback"),
		Report:          v.GetString("report"),
		Provenance:      v.GetString("provenance"),
		ExcludedFields:  v.GetStringSlice("excluded_fields"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are never overridden, so .env.local wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
