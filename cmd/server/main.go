package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"anoa.com/mindminer/internal/config"
	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/server"
	"anoa.com/mindminer/pkg/database"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var db *gorm.DB
	if cfg.StorageDriver == "postgres" {
		db = database.Connect(cfg.DatabaseURL)
		if err := migrate(db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		log.Println("✅ Database migrated")
	}

	redisClient := database.ConnectRedis(cfg.RedisURL)

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
	log.Println("👋 Server stopped")
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Session{},
		&entity.UserStats{},
		&entity.NFT{},
	)
}
