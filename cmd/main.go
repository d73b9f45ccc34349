package main

import (
	"log"

	"github.com/RayZar23/ton-nft-market1/internal/app"
	"github.com/RayZar23/ton-nft-market1/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Run()
}
