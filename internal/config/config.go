package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// BankSource is fs|http. fs reads BankDir; http fetches from BankURL
	// and keeps a copy under CacheDir when set.
	BankSource string
	BankDir    string
	BankURL    string
	CacheDir   string

	CatalogPath    string
	FetchParallel  int
	TickInterval   time.Duration
	CORSOrigins    []string
	AllowAnyOrigin bool
}

// FromEnv reads the environment, after loading .env when one exists.
func FromEnv() Config {
	_ = godotenv.Load()
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BankSource:     envOr("BANK_SOURCE", "fs"),
		BankDir:        envOr("BANK_DIR", "."),
		BankURL:        envOr("BANK_URL", ""),
		CacheDir:       envOr("BANK_CACHE_DIR", ""),
		CatalogPath:    envOr("CATALOG_PATH", ""),
		FetchParallel:  envInt("FETCH_PARALLEL", 4),
		TickInterval:   time.Duration(envInt("TICK_MS", 1000)) * time.Millisecond,
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		AllowAnyOrigin: envBool("CORS_ALLOW_ANY", mode == ModeOffline),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
