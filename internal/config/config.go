package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	APNS     APNSConfig     `yaml:"apns"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       int    `yaml:"port"`
	Host       string `yaml:"host"`
	TrustProxy bool   `yaml:"trust_proxy"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
	MigrateOnBoot bool   `yaml:"migrate_on_boot"`
}

// AWSConfig holds object storage configuration for event header images
type AWSConfig struct {
	Region     string `yaml:"region"`
	S3Bucket   string `yaml:"s3_bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"`
	PathStyle  bool   `yaml:"path_style"`
	URLExpires int    `yaml:"url_expires_minutes"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	SessionDays int    `yaml:"session_days"`
}

// AuthConfig holds passwordless login configuration
type AuthConfig struct {
	MagicLinkURL    string `yaml:"magic_link_url"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	LoginPerMinute  int    `yaml:"login_per_minute"`
	LoginBurst      int    `yaml:"login_burst"`
	EmailPerMinute  int    `yaml:"email_per_minute"`
	EmailBurst      int    `yaml:"email_burst"`
}

// SMTPConfig holds the mail relay used for magic links
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// APNSConfig holds push configuration; an empty certificate path disables push
type APNSConfig struct {
	CertificatePath string `yaml:"certificate_path"`
	Password        string `yaml:"password"`
	Topic           string `yaml:"topic"`
	Production      bool   `yaml:"production"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.SessionDays == 0 {
		c.JWT.SessionDays = 30
	}
	if c.Auth.TokenTTLMinutes == 0 {
		c.Auth.TokenTTLMinutes = 15
	}
	if c.Auth.LoginPerMinute == 0 {
		c.Auth.LoginPerMinute = 5
	}
	if c.Auth.LoginBurst == 0 {
		c.Auth.LoginBurst = 3
	}
	if c.Auth.EmailPerMinute == 0 {
		c.Auth.EmailPerMinute = 1
	}
	if c.Auth.EmailBurst == 0 {
		c.Auth.EmailBurst = 3
	}
	if c.AWS.URLExpires == 0 {
		c.AWS.URLExpires = 60
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports the required values that are missing
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if u, err := url.Parse(c.Auth.MagicLinkURL); c.Auth.MagicLinkURL == "" || err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, errors.New("auth.magic_link_url must be an absolute url"))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// SessionTTL returns the lifetime of an issued session
func (c *JWTConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionDays) * 24 * time.Hour
}

// TokenTTL returns the lifetime of a magic link token
func (c *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
