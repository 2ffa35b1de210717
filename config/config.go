package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	// Records store
	DBPath     string
	RecordsCSV string
	DropDir    string

	// Reasoning collaborator
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	Temperature   float64
	MaxTurnTokens int

	// Notification transport
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string

	// HTTP surface
	HTTPPort  string
	APISecret string

	// Workflow options
	DirectoryPath           string
	RequireInstitutionMatch bool
	DisclosureImmediate     bool

	Environment   string
	EnableWatcher bool
}

// Load reads configuration from environment and optional .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DBPath:     getenv("DB_PATH", "./taxbuddy.db"),
		RecordsCSV: getenv("RECORDS_CSV", "./data/tax_records.csv"),
		DropDir:    getenv("RECORDS_DROP_DIR", "./drop"),

		OpenAIAPIKey:  getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", ""),
		Model:         getenv("OPENAI_MODEL", "gpt-4o-mini"),
		Temperature:   getenvFloat("MODEL_TEMPERATURE", 0.7),
		MaxTurnTokens: clampInt(getenvInt("MAX_TURN_TOKENS", 1000), 64, 4096),

		SMTPHost:       getenv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:       clampInt(getenvInt("SMTP_PORT", 587), 1, 65535),
		SenderEmail:    getenv("SENDER_EMAIL", ""),
		SenderPassword: getenv("SENDER_PASSWORD", ""),

		HTTPPort:  normalizePort(getenv("HTTP_PORT", "8080")),
		APISecret: getenv("API_SECRET", ""),

		DirectoryPath:           getenv("DIRECTORY_PATH", "./directory.yaml"),
		RequireInstitutionMatch: getenvBool("REQUIRE_INSTITUTION_MATCH", true),
		DisclosureImmediate:     getenvBool("DISCLOSURE_IMMEDIATE", true),

		Environment:   getenv("ENVIRONMENT", "local"),
		EnableWatcher: getenvBool("ENABLE_WATCHER", true),
	}

	log.Printf("config: db=%s drop_dir=%s model=%s env=%s", cfg.DBPath, cfg.DropDir, cfg.Model, cfg.Environment)
	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func normalizePort(v string) string {
	if v == "" {
		return ":8080"
	}
	if v[0] == ':' {
		return v
	}
	return ":" + v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
