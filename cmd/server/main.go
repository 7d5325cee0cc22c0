// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pokerhost/dealer/internal/auth"
	"github.com/pokerhost/dealer/internal/cache"
	"github.com/pokerhost/dealer/internal/database"
	"github.com/pokerhost/dealer/internal/handlers"
	"github.com/pokerhost/dealer/internal/middleware"
	"github.com/pokerhost/dealer/internal/session"
)

func main() {
	reset := flag.Bool("reset", false, "discard the persisted session state at boot")
	flag.Parse()

	// Persistent signing keys keep tokens valid across restarts; without
	// them a fresh key pair is generated and players re-login.
	privKey := os.Getenv("ED25519_PRIVATE_KEY_FILE")
	pubKey := os.Getenv("ED25519_PUBLIC_KEY_FILE")
	if privKey != "" && pubKey != "" {
		if err := auth.InitFromPath(privKey, pubKey); err != nil {
			log.Fatalf("failed to load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	opts := []session.Option{}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, action journal disabled: %v", err)
	} else {
		opts = append(opts, session.WithActionLogger(func(ctx context.Context, rec cache.ActionRecord) {
			if err := cache.PublishAction(ctx, rec); err != nil {
				logger.Warnf("failed to journal action: %v", err)
			}
		}))
	}
	if d := os.Getenv("BLIND_TIMER_DURATION"); d != "" {
		dur, err := time.ParseDuration(d)
		if err != nil {
			log.Fatalf("invalid BLIND_TIMER_DURATION: %v", err)
		}
		opts = append(opts, session.WithClockDuration(dur))
	}

	store := database.NewStateStore()
	if *reset {
		if err := store.Clear(ctx, session.Key); err != nil {
			log.Fatalf("failed to reset session state: %v", err)
		}
		logger.Info("persisted session state cleared")
	}

	manager := session.NewManager(ctx, store, logger, opts...)

	verify := func(ctx context.Context, token string) (handlers.Identity, error) {
		userID, name, err := auth.AuthenticateJWT(token)
		if err != nil {
			return handlers.Identity{}, err
		}
		id, err := uuid.Parse(userID)
		if err != nil {
			return handlers.Identity{}, err
		}
		return handlers.Identity{ID: id, Name: name}, nil
	}

	hub := handlers.NewHub(manager, verify, logger)
	go hub.RunClockLoop(ctx, time.Second)

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)
	mux.HandleFunc("/user/logout", handlers.LogoutHandler(hub))
	mux.HandleFunc("/health", handlers.HealthHandler)

	// session websocket
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, hub),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
