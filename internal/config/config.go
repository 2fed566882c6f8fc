package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds the target database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "sqlite" or "postgres"
	Path            string        `mapstructure:"path"`   // SQLite file, ignored for postgres
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// LegacyConfig holds the local legacy store configuration
type LegacyConfig struct {
	Path            string `mapstructure:"path"`
	BackupDir       string `mapstructure:"backup_dir"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	PlaceholderHome string `mapstructure:"placeholder_home"`
}

// S3Config holds the object storage holding the replica zone
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
}

// ReplicaConfig holds the remote recovery configuration
type ReplicaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Zone        string `mapstructure:"zone"`
	PageSize    int    `mapstructure:"page_size"`
	Parallel    int    `mapstructure:"parallel"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	// AutoRecover runs the recovery right after a successful probe
	AutoRecover          bool          `mapstructure:"auto_recover"`
	AssetInitialInterval time.Duration `mapstructure:"asset_initial_interval"`
	AssetMaxInterval     time.Duration `mapstructure:"asset_max_interval"`
	AssetMaxElapsedTime  time.Duration `mapstructure:"asset_max_elapsed_time"`
	S3                   S3Config      `mapstructure:"s3"`
}

// MetricsConfig holds the run metrics export configuration
type MetricsConfig struct {
	// TextfilePath is a node-exporter textfile; empty disables the export
	TextfilePath string `mapstructure:"textfile_path"`
}

// MigratorConfig holds configuration for the migrator program
type MigratorConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Legacy     LegacyConfig   `mapstructure:"legacy"`
	Replica    ReplicaConfig  `mapstructure:"replica"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
}

// LoadMigratorConfig loads configuration for the migrator
func LoadMigratorConfig(configFile string, envPath string) (*MigratorConfig, error) {
	v := configureViper("migrator", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/movingbox.sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("legacy.path", filepath.Join("data", domain.DEFAULT_LEGACY_STORE_NAME))
	v.SetDefault("legacy.backup_dir", "data/legacy-backups")
	v.SetDefault("legacy.max_attempts", domain.MAX_MIGRATION_ATTEMPTS)
	v.SetDefault("legacy.placeholder_home", domain.DEFAULT_PLACEHOLDER_HOME)
	v.SetDefault("replica.enabled", false)
	v.SetDefault("replica.zone", domain.LEGACY_ZONE_NAME)
	v.SetDefault("replica.page_size", domain.DEFAULT_PAGE_SIZE)
	v.SetDefault("replica.parallel", domain.REMOTE_FETCH_PARALLEL)
	v.SetDefault("replica.max_attempts", domain.MAX_RECOVERY_ATTEMPTS)
	v.SetDefault("replica.auto_recover", true)
	v.SetDefault("replica.asset_initial_interval", "200ms")
	v.SetDefault("replica.asset_max_interval", "5s")
	v.SetDefault("replica.asset_max_elapsed_time", "30s")
	v.SetDefault("replica.s3.region", "us-east-1")
	v.SetDefault("replica.s3.max_attempts", 3)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var config MigratorConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in the current, service and config directories
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("MIGRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.driver",
		"database.path",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Legacy store
		"legacy.path",
		"legacy.backup_dir",
		"legacy.max_attempts",
		"legacy.placeholder_home",
		// Replica
		"replica.enabled",
		"replica.zone",
		"replica.page_size",
		"replica.parallel",
		"replica.max_attempts",
		"replica.auto_recover",
		"replica.asset_initial_interval",
		"replica.asset_max_interval",
		"replica.asset_max_elapsed_time",
		"replica.s3.bucket",
		"replica.s3.region",
		"replica.s3.endpoint",
		"replica.s3.access_key_id",
		"replica.s3.secret_access_key",
		"replica.s3.path_style",
		"replica.s3.max_attempts",
		// Metrics
		"metrics.textfile_path",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
