package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/api"
	"github.com/nexahealth/triagebot/internal/api/middleware"
	"github.com/nexahealth/triagebot/internal/assistant"
	"github.com/nexahealth/triagebot/internal/classifier"
	"github.com/nexahealth/triagebot/internal/config"
	"github.com/nexahealth/triagebot/internal/db"
	"github.com/nexahealth/triagebot/internal/symptoms"
	"github.com/nexahealth/triagebot/internal/ws"
)

func main() {
	cfg := config.Load()
	if err := cfg.RequireServer(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	database, err := db.NewFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("✅ Database connected")

	catalog, err := symptoms.LoadFile(cfg.Path("symptoms_config.json"))
	if err != nil {
		log.Fatalf("Failed to load symptom catalog: %v", err)
	}
	keywords, err := symptoms.LoadKeywords(cfg.Path("health_keywords.json"))
	if err != nil {
		log.Fatalf("Failed to load health keywords: %v", err)
	}
	relevance := classifier.NewRelevanceFilter(keywords, catalog.Names())

	client, err := assistant.NewClient(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to configure AI provider: %v", err)
	}
	if client == nil {
		log.Printf("Warning: no API key for AI_PROVIDER=%s; chat will answer with a configuration notice", cfg.AI.Provider)
	}
	svc := assistant.NewService(client, relevance, assistant.Options{Timeout: cfg.AI.Timeout})

	chatHandler := api.NewChatHandler(svc, database)
	linkHandler := api.NewWalletLinkHandler(database)
	wsHandler := ws.NewChatHandler(svc, database, 20)

	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.PerIP(middleware.PerMinute(cfg.RateLimitPerMinute)))
	router.Use(middleware.PerWallet(middleware.PerMinute(cfg.RateLimitPerMinute)))
	router.Use(middleware.RelayAuth(cfg.RelaySecret))

	router.GET("/health", api.Health(svc, database))
	chatHandler.RegisterRoutes(router)
	linkHandler.RegisterRoutes(router)
	router.GET("/ws/chat", wsHandler.HandleChat)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
		log.Printf("📝 API endpoints:")
		log.Printf("   GET    /health")
		log.Printf("   POST   /chat")
		log.Printf("   GET    /chat/history")
		log.Printf("   GET    /chat/conversation/:id")
		log.Printf("   POST   /wallet/link-telegram")
		log.Printf("   GET    /wallet/link-telegram/:telegram_user_id")
		log.Printf("   WS     /ws/chat")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
