package main

import (
	"flag"
	"log"
	"os"

	"markethub_api/config"
	"markethub_api/internal/app"
	"markethub_api/pkg/dbconnect/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the app config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres = *config.GetConfig()
	}

	connector := postgres.NewPgConnector(&cfg.Postgres)
	server := app.NewServer(cfg, connector, os.Stdout)
	if err := server.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
