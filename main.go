// main.go
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ariebrainware/sehatec/assistant"
	"github.com/ariebrainware/sehatec/config"
	"github.com/ariebrainware/sehatec/endpoint"
	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/repository"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/storage"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	if cfg.JWTSecret == "" {
		secret, err := util.GenerateSalt()
		if err != nil {
			log.Fatalf("Error generating session secret: %v", err)
		}
		log.Println("WARNING: JWTSECRET is not set; sessions will not survive a restart")
		cfg.JWTSecret = secret
	}
	util.SetJWTSecret(cfg.JWTSecret)

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := db.AutoMigrate(&model.SecurityLog{}); err != nil {
		log.Fatalf("Error migrating security log: %v", err)
	}
	util.SetSecurityLoggerDB(db)

	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP lookups disabled: %v", err)
	}
	defer util.CloseGeoIP()

	rdb, err := config.ConnectRedis()
	if err != nil {
		log.Printf("Redis unavailable, continuing without it: %v", err)
	}

	store, err := openStorage(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Error opening storage: %v", err)
	}

	ctx := context.Background()
	patients, err := repository.NewPatientRepository(ctx, store)
	if err != nil {
		log.Fatalf("Error loading patients: %v", err)
	}
	accounts, err := repository.NewAccountStore(ctx, store)
	if err != nil {
		log.Fatalf("Error loading accounts: %v", err)
	}

	svc := &middleware.Services{
		Storage:        store,
		Patients:       patients,
		Accounts:       accounts,
		Sessions:       session.NewStore(cfg.SessionTTL, rdb),
		Conversations:  assistant.NewConversationStore(assistant.FromConfig(cfg)),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)
	router := endpoint.NewRouter(cfg.AppName, svc)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

// openStorage picks the document store named by STORAGE_BACKEND.
func openStorage(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("storage backend %q but Redis is unreachable", cfg.StorageBackend)
		}
		return storage.NewRedisStorage(rdb), nil
	case config.StorageBackendDatabase, "":
		return storage.NewDBStorage(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
