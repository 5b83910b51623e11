package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roombot/internal/ai"
	"roombot/internal/chat"
	"roombot/internal/config"
	"roombot/internal/dispatch"
	"roombot/internal/features"
	"roombot/internal/health"
	"roombot/internal/kv"
	"roombot/internal/rooms"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.Chat.URL == "" || cfg.Chat.Username == "" {
		log.Println("CHAT_WS_URL and CHAT_USERNAME are required")
		os.Exit(1)
	}

	var scores kv.Store
	if cfg.Store.Path != "" {
		s, err := kv.NewSQLite(cfg.Store.Path)
		if err != nil {
			log.Println("store open error:", err)
			os.Exit(1)
		}
		scores = s
	} else {
		scores = kv.NewMemory()
	}

	roomStore := rooms.NewStore(cfg.Chat.Username)

	client := chat.New(chat.Options{
		URL:              cfg.Chat.URL,
		Username:         cfg.Chat.Username,
		Password:         cfg.Chat.Password,
		NormalCloseDelay: cfg.Reconnect.NormalClose,
		ErrorCloseDelay:  cfg.Reconnect.ErrorClose,
		DialTimeout:      cfg.Reconnect.DialTimeout,
	})

	bot := &dispatch.Bot{Sender: client, Rooms: roomStore}

	// Handler order is significant: moderation first, then games, then
	// the chattier features.
	admin := features.NewAdmin(client, cfg.Sessions.AdminIdle, cfg.Sessions.SweepInterval)
	mines := features.NewMines(client, scores, cfg.Sessions.IdleDefault, cfg.Sessions.SweepInterval)
	aichat := features.NewAIChat(
		ai.NewHTTPCompleter(cfg.AI.BaseURL, cfg.AI.APIKey),
		cfg.AI.Cooldown, cfg.Sessions.IdleDefault, cfg.Sessions.SweepInterval)
	score := features.NewScore(scores)

	reg := dispatch.NewRegistry()
	reg.Register(admin)
	reg.Register(mines)
	reg.Register(score)
	reg.Register(aichat)

	router := dispatch.NewRouter(bot, reg, cfg.Chat.Prefix)
	client.SetOnFrame(router.Route)

	if err := client.Connect(context.Background()); err != nil {
		// The supervisor keeps retrying on its own; startup proceeds.
		log.Println("initial connect failed:", err)
	}
	for _, room := range cfg.Chat.AutoJoin {
		name, password, _ := strings.Cut(room, ":")
		if err := client.JoinRoom(name, password); err != nil {
			log.Printf("join %q queued for reconnect: %v", name, err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.Handler(client, scores))

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping...")
		client.Shutdown()
		admin.Stop()
		mines.Stop()
		aichat.Stop()
		if err := scores.Close(); err != nil {
			log.Println("store close error:", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("debug server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
