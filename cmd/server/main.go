package main

import (
	"fmt"
	"log"

	"medparse/internal/config"
	"medparse/internal/extractor"
	"medparse/internal/handler"
	"medparse/internal/router"
	"medparse/internal/service"
	"medparse/internal/structurer/zhipu"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize remote clients
	extractClient, err := extractor.New(&cfg.Extract)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction client: %w", err)
	}
	structureClient := zhipu.NewClient(&cfg.Zhipu)

	// Initialize services
	pipelineSvc := service.NewPipelineService(extractClient, structureClient, cfg.Pipeline)

	// Initialize handlers
	convertH := handler.NewConvertHandler(pipelineSvc)
	healthH := handler.NewHealthHandler(cfg)

	// Setup router
	r := router.Setup(cfg, convertH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
