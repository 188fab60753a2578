package main

import (
	"log"

	"tably-system/config"
	"tably-system/internal/billing"
	"tably-system/internal/catalog"
	"tably-system/internal/database"
)

func main() {
	cfg := config.LoadConfig()

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	billingService := billing.NewService(db)
	catalogService := catalog.NewService(db, redisClient)

	r := setupRouter(cfg, db, billingService, catalogService)

	addr := ":" + cfg.Server.Port
	log.Printf("Starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
