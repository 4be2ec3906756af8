package extractor

import (
	"fmt"

	"medparse/internal/config"
	"medparse/internal/extractor/local"
	"medparse/internal/extractor/mineru"
	"medparse/internal/port"
)

// New creates the configured extraction backend.
func New(cfg *config.ExtractConfig) (port.BatchExtractor, error) {
	switch cfg.Provider {
	case "", "mineru":
		return mineru.NewClient(&cfg.MinerU), nil
	case "local":
		return local.NewExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
}
