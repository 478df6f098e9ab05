package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"vision-bot/api/internal/clarifai"
)

// DefaultModelID: general image recognition model Clarifai.
const DefaultModelID = "aaa03c23b3724a16a56b629203edc62c"

type Config struct {
	Port string

	ClarifaiAPIKey  string
	ClarifaiModelID string
	ClarifaiBaseURL string

	TopConcepts     int
	MinConceptValue float64

	TelegramBotToken string
	WebhookURL       string
	DatabaseURL      string

	GeminiAPIKey string
	GeminiModel  string
}

// Load читает .env (если есть) и окружение; без обязательных ключей падает.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}
	cfg, err := LoadFrom(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func LoadFrom(getenv func(string) string) (*Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:             get("PORT", "8000"),
		ClarifaiAPIKey:   get("CLARIFAI_API_KEY", ""),
		ClarifaiModelID:  get("CLARIFAI_MODEL_ID", DefaultModelID),
		ClarifaiBaseURL:  strings.TrimRight(get("CLARIFAI_BASE_URL", clarifai.DefaultBaseURL), "/"),
		TelegramBotToken: get("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       get("WEBHOOK_URL", ""),
		DatabaseURL:      get("DATABASE_URL", ""),
		GeminiAPIKey:     get("GEMINI_API_KEY", ""),
		GeminiModel:      get("GEMINI_MODEL", "gemini-2.5-flash"),
	}
	if cfg.ClarifaiAPIKey == "" {
		return nil, fmt.Errorf("missing required env CLARIFAI_API_KEY")
	}

	n, err := strconv.Atoi(get("TOP_CONCEPTS", "5"))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad TOP_CONCEPTS %q", getenv("TOP_CONCEPTS"))
	}
	cfg.TopConcepts = n

	v, err := strconv.ParseFloat(get("MIN_CONCEPT_VALUE", "0"), 64)
	if err != nil || v < 0 || v > 1 {
		return nil, fmt.Errorf("bad MIN_CONCEPT_VALUE %q", getenv("MIN_CONCEPT_VALUE"))
	}
	cfg.MinConceptValue = v

	return cfg, nil
}

// RequireBot проверяет ключи, нужные только боту.
func (c *Config) RequireBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}
