package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"SmartLoan/internal/di"
	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s models=%s", cfg.Environment, cfg.Models.Backend, cfg.Models.Dir)

	app, err := di.InitializeApp(cfg)
	if errors.Is(err, artifact.ErrModelLoad) {
		log.Fatalf("models unavailable, run the trainer first: %v", err)
	}
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
