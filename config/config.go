package config

import (
	"KidQuest/pkg/logger"
	"KidQuest/repositories/impl"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type Config struct {
	Development bool
	Port        string

	// Postgres. Пустой DBHost - работаем на in-memory хранилище.
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     int
	DBSSLMode  string

	JWTSecret string
	JWTTTL    time.Duration

	FirebaseCredentialsPath string

	SpendRequestTTL time.Duration
	SweepInterval   time.Duration
	TxMaxRetries    int
	TaskXP          int64
	ParentCodeTTL   time.Duration
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development: getEnvAsBool("DEVELOPMENT", false),
		Port:        getEnv("PORT", "8000"),

		DBHost:     getEnv("DB_HOST", ""),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "kidquest"),
		DBPort:     getEnvAsInt("DB_PORT", 5432),
		DBSSLMode:  getEnv("DB_SSLMODE", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		SpendRequestTTL: getEnvAsDuration("SPEND_REQUEST_TTL", 72*time.Hour),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
		TxMaxRetries:    getEnvAsInt("TX_MAX_RETRIES", 3),
		TaskXP:          int64(getEnvAsInt("TASK_XP", 10)),
		ParentCodeTTL:   getEnvAsDuration("PARENT_CODE_TTL", 24*time.Hour),
	}

	if cfg.DBSSLMode == "" {
		// Render требует TLS
		if strings.Contains(cfg.DBHost, "render.com") {
			cfg.DBSSLMode = "require"
		} else {
			cfg.DBSSLMode = "disable"
		}
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.SpendRequestTTL <= 0 {
		return fmt.Errorf("SPEND_REQUEST_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.TxMaxRetries < 1 {
		return fmt.Errorf("TX_MAX_RETRIES must be at least 1")
	}
	if c.TaskXP <= 0 {
		return fmt.Errorf("TASK_XP must be positive")
	}
	if c.DBHost != "" && c.DBName == "" {
		return fmt.Errorf("DB_NAME is required when DB_HOST is set")
	}
	return nil
}

// UseDatabase reports whether a Postgres store is configured.
func (c *Config) UseDatabase() bool {
	return c.DBHost != ""
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// gormWriter routes gorm's logger into zap.
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Warnf(format, args...)
}

// InitDatabase opens Postgres and migrates the schema.
func InitDatabase(cfg *Config, log *logger.Logger) (*gorm.DB, error) {
	log.Infow("connecting to database",
		"host", cfg.DBHost, "user", cfg.DBUser, "dbname", cfg.DBName, "port", cfg.DBPort, "sslmode", cfg.DBSSLMode)

	// Suppress "record not found" messages
	gl := gormLogger.New(gormWriter{log: log}, gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := impl.Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Successfully connected to database!")
	return db, nil
}

// InitFirebase returns nil when no credentials are configured.
func InitFirebase(ctx context.Context, cfg *Config) (*firebase.App, error) {
	if cfg.FirebaseCredentialsPath == "" {
		return nil, nil
	}
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
