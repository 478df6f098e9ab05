package main

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"vision-bot/api/internal/caption"
	"vision-bot/api/internal/clarifai"
	"vision-bot/api/internal/config"
	"vision-bot/api/internal/httpserver"
	"vision-bot/api/internal/store"
	"vision-bot/api/internal/telegram"
)

func main() {
	cfg := config.Load()
	if err := cfg.RequireBot(); err != nil {
		log.Fatal(err)
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	client := clarifai.New(cfg.ClarifaiAPIKey, cfg.ClarifaiModelID,
		clarifai.WithBaseURL(cfg.ClarifaiBaseURL),
	)
	r := telegram.NewRouter(bot, client)
	r.TopN = cfg.TopConcepts
	r.MinValue = cfg.MinConceptValue

	// --- Postgres (необязателен: без него просто нет /history) ---
	var health httpserver.Pinger
	if dsn := resolveDSN(cfg.DatabaseURL); dsn != "" {
		db := openDB(dsn)
		health = db
		repo := store.NewPredictionRepo(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		r.History = repo
		go purgeLoop(repo, 30*24*time.Hour)
	} else {
		log.Printf("database DSN is empty: history disabled")
	}

	if cfg.GeminiAPIKey != "" {
		c := caption.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		r.Captioner = c
		log.Printf("captions enabled: %s/%s", c.Name(), cfg.GeminiModel)
	}

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("bot @%s, model=%s", bot.Self.UserName, client.ModelID())

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(addr, bot, r, webhookURL, health)
	} else {
		startPollingMode(addr, bot, r, health)
	}
}

func openDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}
	log.Printf("db connected: %s", safeDSNSummary(dsn))
	return db
}

func purgeLoop(repo *store.PredictionRepo, olderThan time.Duration) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := repo.PurgeOlderThan(ctx, olderThan)
		cancel()
		if err != nil {
			log.Printf("purge predictions: %v", err)
			continue
		}
		log.Printf("purged %d old predictions", n)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, health httpserver.Pinger) {
	// секретный путь вебхука
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	log.Fatal(httpserver.StartHTTP(addr, health))
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, health httpserver.Pinger) {
	// webhook мог остаться от прошлого запуска, тогда getUpdates вернёт 409
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("deleteWebhook: %v", err)
	}
	go func() {
		log.Fatal(httpserver.StartHTTP(addr, health))
	}()

	runPolling(context.Background(), bot, r.HandleUpdate)
}
