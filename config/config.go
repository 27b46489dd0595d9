package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	StorageBackendDatabase = "database"
	StorageBackendRedis    = "redis"

	AssistantModeScripted  = "scripted"
	AssistantModeDelegated = "delegated"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUSER   string `json:"dbuser"`
	DBPass   string `json:"dbpass"`

	StorageBackend string        `json:"storage_backend"`
	JWTSecret      string        `json:"-"`
	SessionTTL     time.Duration `json:"session_ttl"`
	MaxUploadBytes int64         `json:"max_upload_bytes"`
	GeoIPDBPath    string        `json:"geoip_db_path"`

	AssistantMode string `json:"assistant_mode"`
	OpenAIKey     string `json:"-"`
	OpenAIModel   string `json:"openai_model"`
	OpenAIBaseURL string `json:"openai_base_url"`
}

var config *Config
var once sync.Once

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env is fine when the environment is provided by the process manager.
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, err := strconv.ParseUint(getEnv("APPPORT", "8080"), 10, 16)
		if err != nil {
			appPort = 8080
		}
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
		if err != nil || sessionTTL <= 0 {
			sessionTTL = time.Hour
		}
		maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "5242880"), 10, 64)
		if err != nil || maxUpload <= 0 {
			maxUpload = 5 << 20
		}

		config = &Config{
			AppName:        getEnv("APPNAME", "Sehatec"),
			AppEnv:         os.Getenv("APPENV"),
			AppPort:        uint16(appPort),
			GinMode:        getEnv("GINMODE", "debug"),
			DBDriver:       getEnv("DBDRIVER", "mysql"),
			DBHost:         os.Getenv("DBHOST"),
			DBPort:         uint16(dbPort),
			DBName:         os.Getenv("DBNAME"),
			DBUSER:         os.Getenv("DBUSER"),
			DBPass:         os.Getenv("DBPASS"),
			StorageBackend: getEnv("STORAGE_BACKEND", StorageBackendDatabase),
			JWTSecret:      os.Getenv("JWTSECRET"),
			SessionTTL:     sessionTTL,
			MaxUploadBytes: maxUpload,
			GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
			AssistantMode:  getEnv("ASSISTANT_MODE", AssistantModeScripted),
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		}
	})
	return config
}

// IsTest reports whether the process runs under APPENV=test. The value is read
// from the environment on every call so tests can flip it with t.Setenv.
func IsTest() bool {
	return os.Getenv("APPENV") == "test"
}

// ConnectDatabase opens the gorm connection for the configured driver.
// Under APPENV=test it always returns a private in-memory SQLite database.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()

	if IsTest() {
		dsn := fmt.Sprintf("file:sehatec_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		dialector = mysql.Open(dsn)
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable", cfg.DBHost, cfg.DBUSER, cfg.DBPass, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	case "sqlite":
		name := cfg.DBName
		if name == "" {
			name = "sehatec.db"
		}
		dialector = sqlite.Open(name)
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
