package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nexahealth/triagebot/internal/assistant"
	"github.com/nexahealth/triagebot/internal/chat"
	"github.com/nexahealth/triagebot/internal/classifier"
	"github.com/nexahealth/triagebot/internal/config"
	"github.com/nexahealth/triagebot/internal/conversation"
	"github.com/nexahealth/triagebot/internal/facility"
	"github.com/nexahealth/triagebot/internal/relay"
	"github.com/nexahealth/triagebot/internal/symptoms"
	"github.com/nexahealth/triagebot/internal/telegram"
)

func main() {
	cfg := config.Load()
	if err := cfg.RequireBot(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	catalog, err := symptoms.LoadFile(cfg.Path("symptoms_config.json"))
	if err != nil {
		log.Fatalf("Failed to load symptom catalog: %v", err)
	}
	facilities, err := facility.LoadFile(cfg.Path("facilities.json"))
	if err != nil {
		log.Fatalf("Failed to load facilities: %v", err)
	}
	keywords, err := symptoms.LoadKeywords(cfg.Path("health_keywords.json"))
	if err != nil {
		log.Fatalf("Failed to load health keywords: %v", err)
	}
	log.Printf("✅ Loaded %d categories, %d symptoms, %d keywords",
		len(catalog.Categories()), len(catalog.Names()), len(keywords))

	relevance := classifier.NewRelevanceFilter(keywords, catalog.Names())

	client, err := assistant.NewClient(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to configure AI provider: %v", err)
	}
	svc := assistant.NewService(client, relevance, assistant.Options{Timeout: cfg.AI.Timeout})

	if cfg.RelaySecret == "" {
		log.Printf("Warning: RELAY_SECRET is not set; the API will reject wallet links from the bot")
	}
	linker := relay.NewClient(cfg.BackendURL, cfg.RelaySecret)

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	bot.Debug = cfg.TelegramDebug
	log.Printf("✅ Authorized as @%s", bot.Self.UserName)

	sessions := conversation.NewManager()
	engine := chat.NewEngine(
		catalog,
		sessions,
		telegram.NewMessenger(bot),
		svc,
		facilities,
		relevance,
		linker,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down bot...")
		bot.StopReceivingUpdates()
	}()

	log.Println("🚀 Bot polling for updates")
	telegram.Run(ctx, updates, engine)
	log.Printf("Bot exited, dropping %d in-memory chat sessions", sessions.Len())
}
