package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Discord        DiscordConfig        `yaml:"discord"`
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
	Auction        AuctionConfig        `yaml:"auction"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	GuildID string `yaml:"guild_id"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DBName         string        `yaml:"dbname"`
	SSLMode        string        `yaml:"sslmode"`
	Driver         string        `yaml:"driver"` // "sqlx", "mongo" or "memory"
	MongoURI       string        `yaml:"mongo_uri"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the Postgres connection string in URL form, as expected by
// the schema migrator.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings. An empty OTLPEndpoint
// disables export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// AuctionConfig holds league auction settings.
type AuctionConfig struct {
	// StartingBudget is used for teams whose dataset row has no budget.
	StartingBudget int `yaml:"starting_budget"`
	// DataDir holds players.csv, teams.csv and users.csv.
	DataDir string `yaml:"data_dir"`
	// SeedOnStart loads the datasets into empty collections at startup.
	SeedOnStart bool `yaml:"seed_on_start"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "disable",
			Driver:         "sqlx",
			DBName:         "league_auction",
			MongoURI:       "mongodb://localhost:27017",
			ConnectTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctionbot",
			ServiceVersion: "0.1.0",
			LogLevel:       "info",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctionbot-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
		Auction: AuctionConfig{
			StartingBudget: 20000,
			DataDir:        "data",
			SeedOnStart:    true,
		},
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlx", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"sqlx\", \"mongo\" or \"memory\"", c.Database.Driver)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Telemetry.LogLevel)); err != nil {
		return fmt.Errorf("telemetry.log_level: %w", err)
	}
	if c.Auction.StartingBudget <= 0 {
		return fmt.Errorf("auction.starting_budget must be positive, got %d", c.Auction.StartingBudget)
	}
	return nil
}
