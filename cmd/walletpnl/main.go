package main

import (
	"log"
	"os"
	"walletpnl/internal/app"
	"walletpnl/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional, the real environment wins
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed load .env, error=%v", err)
	}

	cfgPath := os.Getenv("CONFIG")
	if cfgPath == "" {
		cfgPath = "cmd/walletpnl/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed load config, error=%v", err)
	}

	if err = app.Run(cfg); err != nil {
		log.Fatalf("App run is failed, error=%v", err)
	}
}
