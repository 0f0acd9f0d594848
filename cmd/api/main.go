package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"dealscout/config"
	"dealscout/internal/api"
	"dealscout/internal/store"
	"dealscout/logger"
)

func main() {
	godotenv.Load(config.EnvFile)

	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()

	evalStore, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("Failed to open evaluation store")
	}
	defer evalStore.Close()

	r := mux.NewRouter()
	api.NewHandler(evalStore, cfg.APIAllowClear).RegisterRoutes(r)

	log.Info().
		Str("addr", cfg.APIAddr).
		Str("store", cfg.SQLitePath).
		Bool("allow_clear", cfg.APIAllowClear).
		Msg("Serving evaluation browse API")

	if err := http.ListenAndServe(cfg.APIAddr, r); err != nil {
		log.Fatal().Err(err).Msg("API server exited")
	}
}
