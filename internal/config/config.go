package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/you/accountsvc/domain"
)

// DefaultPath is where Load looks when no path is given
const DefaultPath = "config/config.yml"

type OwnershipRule struct {
	Method    string `yaml:"method"`
	Path      string `yaml:"path"`
	Source    string `yaml:"source"`
	ParamName string `yaml:"paramName"`
}

type AppConfig struct {
	Port          int    `yaml:"port" env:"PORT"`
	GinMode       string `yaml:"gin_mode" env:"GIN_MODE"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat     string `yaml:"log_format" env:"LOG_FORMAT"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, sqlite, mongo
	Driver     string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN        string `yaml:"dsn" env:"DATABASE_DSN"`
	Name       string `yaml:"name" env:"DATABASE_NAME"`
	Collection string `yaml:"collection" env:"DATABASE_COLLECTION"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type JWTConfig struct {
	Secret          string `yaml:"secret" env:"JWT_SECRET"`
	Issuer          string `yaml:"issuer" env:"JWT_ISSUER"`
	SessionTTL      string `yaml:"session_ttl" env:"JWT_SESSION_TTL"`
	VerificationTTL string `yaml:"verification_ttl" env:"JWT_VERIFICATION_TTL"`
	ResetTTL        string `yaml:"reset_ttl" env:"JWT_RESET_TTL"`
	ResetMirrorTTL  string `yaml:"reset_mirror_ttl" env:"JWT_RESET_MIRROR_TTL"`
}

type PasswordConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

type LoginPolicyConfig struct {
	VerifyPassword       bool `yaml:"verify_password"`
	RequireVerifiedEmail bool `yaml:"require_verified_email"`
	ResendVerification   bool `yaml:"resend_verification"`
}

type LoginConfig struct {
	Phone    *LoginPolicyConfig `yaml:"phone"`
	Email    *LoginPolicyConfig `yaml:"email"`
	Username *LoginPolicyConfig `yaml:"username"`
}

type NotificationsConfig struct {
	// EmailProvider is one of sendgrid, smtp, log
	EmailProvider       string `yaml:"email_provider" env:"EMAIL_PROVIDER"`
	FromEmail           string `yaml:"from_email" env:"EMAIL_FROM"`
	FromName            string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	SendGridAPIKey      string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	SMTPHost            string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort            int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUsername        string `yaml:"smtp_username" env:"SMTP_USERNAME"`
	SMTPPassword        string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	VerificationChannel string `yaml:"verification_channel" env:"VERIFICATION_CHANNEL"`
	Workers             int    `yaml:"workers" env:"DISPATCH_WORKERS"`
	QueueSize           int    `yaml:"queue_size" env:"DISPATCH_QUEUE_SIZE"`
	SendTimeout         string `yaml:"send_timeout" env:"DISPATCH_SEND_TIMEOUT"`
	ResendWindow        string `yaml:"resend_window" env:"VERIFICATION_RESEND_WINDOW"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `yaml:"from_number" env:"TWILIO_FROM_NUMBER"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path" env:"CASBIN_MODEL_PATH"`
	// DSN is a sqlite path for policy storage when the account store is mongo
	DSN string `yaml:"dsn" env:"CASBIN_DSN"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type MaintenanceConfig struct {
	ResetSweepSchedule string `yaml:"reset_sweep_schedule" env:"RESET_SWEEP_SCHEDULE"`
}

type ConfigFile struct {
	App            AppConfig           `yaml:"app"`
	Database       DatabaseConfig      `yaml:"database"`
	Redis          RedisConfig         `yaml:"redis"`
	JWT            JWTConfig           `yaml:"jwt"`
	Password       PasswordConfig      `yaml:"password"`
	Login          LoginConfig         `yaml:"login"`
	Notifications  NotificationsConfig `yaml:"notifications"`
	Twilio         TwilioConfig        `yaml:"twilio"`
	Casbin         CasbinConfig        `yaml:"casbin"`
	RateLimit      RateLimitConfig     `yaml:"rate_limit"`
	Maintenance    MaintenanceConfig   `yaml:"maintenance"`
	OwnershipRules []OwnershipRule     `yaml:"ownershipRules"`
}

type Config struct {
	Port                string
	GinMode             string
	PublicBaseURL       string
	LogLevel            string
	LogFormat           string
	DBDriver            string
	DSN                 string
	DBName              string
	DBCollection        string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	JWTSecret           string
	JWTIssuer           string
	SessionTTL          time.Duration
	VerificationTTL     time.Duration
	ResetTokenTTL       time.Duration
	ResetMirrorTTL      time.Duration
	BcryptCost          int
	LoginPolicies       map[domain.IdentityField]domain.LoginPolicy
	EmailProvider       string
	EmailFrom           string
	EmailFromName       string
	SendGridAPIKey      string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	VerificationChannel domain.Channel
	DispatchWorkers     int
	DispatchQueueSize   int
	DispatchTimeout     time.Duration
	ResendWindow        time.Duration
	TwilioSID           string
	TwilioToken         string
	TwilioFrom          string
	CasbinModelPath     string
	CasbinDSN           string
	RateLimitRPS        float64
	RateLimitBurst      int
	ResetSweepSchedule  string
	OwnershipRules      []OwnershipRule
}

// Load reads the YAML file at path, then applies .env and environment overrides
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := env.Parse(configFile); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return FromFile(configFile)
}

// FromFile validates a parsed config file and converts it to a Config
func FromFile(configFile *ConfigFile) (*Config, error) {
	if configFile.JWT.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}

	sessionTTL, err := parseDuration(configFile.JWT.SessionTTL, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT session TTL: %w", err)
	}
	verificationTTL, err := parseDuration(configFile.JWT.VerificationTTL, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT verification TTL: %w", err)
	}
	resetTTL, err := parseDuration(configFile.JWT.ResetTTL, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT reset TTL: %w", err)
	}
	mirrorTTL, err := parseDuration(configFile.JWT.ResetMirrorTTL, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid reset mirror TTL: %w", err)
	}
	sendTimeout, err := parseDuration(configFile.Notifications.SendTimeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid dispatch send timeout: %w", err)
	}
	resendWindow, err := parseDuration(configFile.Notifications.ResendWindow, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid verification resend window: %w", err)
	}

	channel := domain.Channel(configFile.Notifications.VerificationChannel)
	switch channel {
	case "":
		channel = domain.ChannelEmail
	case domain.ChannelEmail, domain.ChannelSMS:
	default:
		return nil, fmt.Errorf("invalid verification channel %q", channel)
	}

	driver := configFile.Database.Driver
	switch driver {
	case "":
		driver = "postgres"
	case "postgres", "sqlite", "mongo":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	port := configFile.App.Port
	if port == 0 {
		port = 8080
	}

	return &Config{
		Port:                fmt.Sprintf("%d", port),
		GinMode:             configFile.App.GinMode,
		PublicBaseURL:       orDefault(configFile.App.PublicBaseURL, fmt.Sprintf("http://localhost:%d", port)),
		LogLevel:            orDefault(configFile.App.LogLevel, "info"),
		LogFormat:           orDefault(configFile.App.LogFormat, "text"),
		DBDriver:            driver,
		DSN:                 configFile.Database.DSN,
		DBName:              orDefault(configFile.Database.Name, "accounts"),
		DBCollection:        orDefault(configFile.Database.Collection, "accounts"),
		RedisAddr:           configFile.Redis.Addr,
		RedisPassword:       configFile.Redis.Password,
		RedisDB:             configFile.Redis.DB,
		JWTSecret:           configFile.JWT.Secret,
		JWTIssuer:           orDefault(configFile.JWT.Issuer, "accountsvc"),
		SessionTTL:          sessionTTL,
		VerificationTTL:     verificationTTL,
		ResetTokenTTL:       resetTTL,
		ResetMirrorTTL:      mirrorTTL,
		BcryptCost:          configFile.Password.BcryptCost,
		LoginPolicies:       loginPolicies(configFile.Login),
		EmailProvider:       orDefault(configFile.Notifications.EmailProvider, "log"),
		EmailFrom:           configFile.Notifications.FromEmail,
		EmailFromName:       configFile.Notifications.FromName,
		SendGridAPIKey:      configFile.Notifications.SendGridAPIKey,
		SMTPHost:            configFile.Notifications.SMTPHost,
		SMTPPort:            configFile.Notifications.SMTPPort,
		SMTPUsername:        configFile.Notifications.SMTPUsername,
		SMTPPassword:        configFile.Notifications.SMTPPassword,
		VerificationChannel: channel,
		DispatchWorkers:     orDefaultInt(configFile.Notifications.Workers, 2),
		DispatchQueueSize:   orDefaultInt(configFile.Notifications.QueueSize, 256),
		DispatchTimeout:     sendTimeout,
		ResendWindow:        resendWindow,
		TwilioSID:           configFile.Twilio.AccountSID,
		TwilioToken:         configFile.Twilio.AuthToken,
		TwilioFrom:          configFile.Twilio.FromNumber,
		CasbinModelPath:     configFile.Casbin.ModelPath,
		CasbinDSN:           orDefault(configFile.Casbin.DSN, "casbin.db"),
		RateLimitRPS:        configFile.RateLimit.RequestsPerSecond,
		RateLimitBurst:      orDefaultInt(configFile.RateLimit.Burst, 10),
		ResetSweepSchedule:  orDefault(configFile.Maintenance.ResetSweepSchedule, "@every 1h"),
		OwnershipRules:      configFile.OwnershipRules,
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func loginPolicies(cfg LoginConfig) map[domain.IdentityField]domain.LoginPolicy {
	policies := domain.DefaultLoginPolicies()
	for field, override := range map[domain.IdentityField]*LoginPolicyConfig{
		domain.FieldPhone:    cfg.Phone,
		domain.FieldEmail:    cfg.Email,
		domain.FieldUsername: cfg.Username,
	} {
		if override == nil {
			continue
		}
		policies[field] = domain.LoginPolicy{
			VerifyPassword:       override.VerifyPassword,
			RequireVerifiedEmail: override.RequireVerifiedEmail,
			ResendVerification:   override.ResendVerification,
		}
	}
	return policies
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
