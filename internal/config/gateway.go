package config

import (
	"strings"
	"time"
)

// GatewayConfig configures the edge router in front of the accounts, loans
// and cards services.
type GatewayConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	Port        string

	AccountsURL string
	LoansURL    string
	CardsURL    string
	Timeout     time.Duration

	// JWTSecret enables bearer-token checks on accounts write routes when
	// non-empty.
	JWTSecret      string
	RequiredRole   string
	AllowedOrigins []string

	BuildVersion string
	Tracing      TracingConfig
}

func LoadGateway() (GatewayConfig, []Problem) {
	var problems []Problem
	cfg := GatewayConfig{
		ServiceName: getEnv("SERVICE_NAME", "api-gateway"),
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8072"),

		AccountsURL: strings.TrimSuffix(getEnv("ACCOUNTS_SERVICE_URL", "http://localhost:8080"), "/"),
		LoansURL:    strings.TrimSuffix(getEnv("LOANS_SERVICE_URL", "http://localhost:8090"), "/"),
		CardsURL:    strings.TrimSuffix(getEnv("CARDS_SERVICE_URL", "http://localhost:9000"), "/"),
		Timeout:     getDuration("GATEWAY_TIMEOUT", 10*time.Second, &problems),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		RequiredRole:   getEnv("ACCOUNTS_ROLE", "ACCOUNTS"),
		AllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),

		BuildVersion: getEnv("BUILD_VERSION", "1.0"),
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			SampleRatio: getFloat("OTEL_SAMPLE_RATIO", 1.0, &problems),
		},
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		problems = append(problems, Problem{Field: "OTEL_SAMPLE_RATIO", Message: "OTEL_SAMPLE_RATIO must be between 0 and 1"})
		cfg.Tracing.SampleRatio = 1.0
	}
	return cfg, problems
}
