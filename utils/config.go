package utils

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DomainName     string
	AllowedOrigins []string
	AIServiceURL   string
	AIServiceToken string
	MetricsToken   string
}

func LoadConfig() *Config {
	// Missing .env is fine in containerized deployments; real env vars win.
	_ = godotenv.Load()

	return &Config{
		DomainName:     os.Getenv("DOMAIN_NAME"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		AIServiceURL:   os.Getenv("AI_SERVICE_URL"),
		AIServiceToken: os.Getenv("AI_SERVICE_TOKEN"),
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
