package main

import (
	"github.com/joho/godotenv"

	"bankfeed-sync-go/internal/config"
	"bankfeed-sync-go/internal/database"
	httpserver "bankfeed-sync-go/internal/http"
	"bankfeed-sync-go/internal/logger"
	"bankfeed-sync-go/internal/models"
)

func main() {
	_ = godotenv.Load(".env")

	log := logger.New()
	cfg := config.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(&models.LinkedUser{}, &models.LinkedConnection{}); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	r := httpserver.NewServer(cfg, db, log)
	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
