package main

import (
	"log"
	"net/http"

	"commitrogue/internal/api"
	"commitrogue/internal/config"
	"commitrogue/internal/content"
	"commitrogue/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	reg, err := content.Load(content.LoadOptions{DiscoverRoot: cfg.PacksDir})
	if err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}
	log.Printf("Loaded content %s (packs: %v)", reg.Hash()[:12], reg.Packs())

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	server := api.NewServer(api.Options{
		Store:          store,
		Registry:       reg,
		AuthSecret:     cfg.AuthSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	log.Printf("Starting server on %s", cfg.Addr())
	if err := http.ListenAndServe(cfg.Addr(), server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
