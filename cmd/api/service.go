package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/transport"
	"github.com/wb-go/wbf/config"
)

// ImageAPIService - все, что нужно от сервиса процессу api: хендлеры и фоновый sweep
type ImageAPIService interface {
	transport.ImageService
	SweepOrphans(ctx context.Context, limit int)
}

// durationOr читает длительность из конфига, при пустом или битом значении берет дефолт
func durationOr(cfg *config.Config, key string, def time.Duration) time.Duration {
	raw := cfg.GetString(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using default %v", key, raw, def)
		return def
	}
	return d
}

func intOr(cfg *config.Config, key string, def int) int {
	raw := cfg.GetString(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return n
}

func stringOr(cfg *config.Config, key, def string) string {
	if v := cfg.GetString(key); v != "" {
		return v
	}
	return def
}
