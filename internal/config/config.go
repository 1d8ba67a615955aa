package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the global configuration tree.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	GraphDatabase GraphDatabaseConfig `mapstructure:"graph_database"`
	Server        ServerConfig        `mapstructure:"server"`
	Training      TrainingConfig      `mapstructure:"training"`
	Log           LogConfig           `mapstructure:"log"`
	OSS           OSSConfig           `mapstructure:"oss"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// OSSConfig points at the object store holding problem and solution diagrams.
type OSSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Address       string        `mapstructure:"address"`
	PublicAddress string        `mapstructure:"public_address"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	BucketName    string        `mapstructure:"bucket_name"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl"`
}

// DatabaseConfig selects the relational driver.
type DatabaseConfig struct {
	Type     string         `mapstructure:"type"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// MySQLConfig MySQL connection settings.
type MySQLConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DBName    string `mapstructure:"dbname"`
	Charset   string `mapstructure:"charset"`
	ParseTime bool   `mapstructure:"parseTime"`
	Loc       string `mapstructure:"loc"`
}

// PostgresConfig PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// SQLiteConfig SQLite file location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// GraphDatabaseConfig groups graph stores.
type GraphDatabaseConfig struct {
	Neo4j Neo4jConfig `mapstructure:"neo4j"`
}

// Neo4jConfig Neo4j connection settings.
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// TrainingConfig bounds for session setup and leaderboards.
type TrainingConfig struct {
	DefaultMinutes         int `mapstructure:"default_minutes"`
	MinMinutes             int `mapstructure:"min_minutes"`
	MaxMinutes             int `mapstructure:"max_minutes"`
	FallbackAverageMinutes int `mapstructure:"fallback_average_minutes"`
	LeaderboardSize        int `mapstructure:"leaderboard_size"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig leaderboard cache settings.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AuditConfig periodic ledger audit.
type AuditConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TracingConfig request tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

var GlobalConfig *Config

// InitConfig loads .env, the yaml file at configPath (optional) and ADEPTLY_* overrides.
func InitConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Load builds a Config without touching GlobalConfig.
func Load(configPath string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ADEPTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in defaults, used by tests and by commands run without a file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// setDefaults registers every key. AutomaticEnv only overrides keys viper already knows.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.dbname", "")
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.parseTime", true)
	v.SetDefault("database.mysql.loc", "Local")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.timezone", "UTC")
	v.SetDefault("database.sqlite.path", "./data/adeptly.db")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("training.default_minutes", 15)
	v.SetDefault("training.min_minutes", 5)
	v.SetDefault("training.max_minutes", 120)
	v.SetDefault("training.fallback_average_minutes", 5)
	v.SetDefault("training.leaderboard_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("graph_database.neo4j.enabled", false)
	v.SetDefault("graph_database.neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("graph_database.neo4j.username", "neo4j")
	v.SetDefault("graph_database.neo4j.password", "password")
	v.SetDefault("graph_database.neo4j.database", "neo4j")

	v.SetDefault("oss.enabled", false)
	v.SetDefault("oss.address", "http://localhost:9000")
	v.SetDefault("oss.public_address", "")
	v.SetDefault("oss.access_key", "")
	v.SetDefault("oss.secret_key", "")
	v.SetDefault("oss.bucket_name", "adeptly-diagrams")
	v.SetDefault("oss.presign_ttl", 15*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*time.Second)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.interval", time.Hour)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "adeptly")
}

// GetDatabaseDSN builds the driver specific connection string.
func (c *Config) GetDatabaseDSN() (string, error) {
	switch c.Database.Type {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			c.Database.MySQL.Username,
			c.Database.MySQL.Password,
			c.Database.MySQL.Host,
			c.Database.MySQL.Port,
			c.Database.MySQL.DBName,
			c.Database.MySQL.Charset,
			c.Database.MySQL.ParseTime,
			c.Database.MySQL.Loc,
		), nil
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.Username,
			c.Database.Postgres.Password,
			c.Database.Postgres.DBName,
			c.Database.Postgres.SSLMode,
			c.Database.Postgres.TimeZone,
		), nil
	case "sqlite":
		return c.Database.SQLite.Path, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
}

// GetServerAddr returns the listen address.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
