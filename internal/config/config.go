package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	DB           DBConfig
	JWT          JWTConfig
	Session      SessionConfig
	OTP          OTPConfig
	Engine       EngineConfig
	Verification VerificationConfig
	Audit        AuditConfig
	MinIO        MinIOConfig
	Twilio       TwilioConfig
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type DBConfig struct {
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite file path
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type SessionConfig struct {
	TTL        time.Duration
	CookieName string
}

type OTPConfig struct {
	// Mode "static" accepts the single DemoCode; mode "totp" issues a
	// per-session code and delivers it through the notifier.
	Mode     string
	DemoCode string
	Validity time.Duration
}

type EngineConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type VerificationConfig struct {
	MaxTurns int
}

type AuditConfig struct {
	ExportInterval time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

func Load() *Config {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
		},
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Path:     getEnv("DB_PATH", "bankportal.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bankportal"),
			Password: getEnv("DB_PASSWORD", "bankportal_secret"),
			Name:     getEnv("DB_NAME", "bankportal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 12),
		},
		Session: SessionConfig{
			TTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "bp_caller"),
		},
		OTP: OTPConfig{
			Mode:     getEnv("OTP_MODE", "static"),
			DemoCode: getEnv("OTP_DEMO_CODE", "832194"),
			Validity: getEnvAsDuration("OTP_VALIDITY", 5*time.Minute),
		},
		Engine: EngineConfig{
			BaseURL:    getEnv("ENGINE_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:     getEnv("ENGINE_API_KEY", ""),
			Model:      getEnv("ENGINE_MODEL", "anthropic/claude-3-haiku"),
			Timeout:    getEnvAsDuration("ENGINE_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvAsInt("ENGINE_MAX_RETRIES", 2),
		},
		Verification: VerificationConfig{
			MaxTurns: getEnvAsInt("VERIFICATION_MAX_TURNS", 20),
		},
		Audit: AuditConfig{
			ExportInterval: getEnvAsDuration("AUDIT_EXPORT_INTERVAL", 1*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "bankportal"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "bankportal_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "bankportal"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Twilio: TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			From:       getEnv("TWILIO_WHATSAPP_FROM", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
