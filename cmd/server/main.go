// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/cardtable/unoserv/internal/auth"
	"github.com/cardtable/unoserv/internal/cache"
	"github.com/cardtable/unoserv/internal/database"
	"github.com/cardtable/unoserv/internal/handlers"
	"github.com/cardtable/unoserv/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, intent history disabled: %v", err)
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreatePlayerHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// game websocket
	srv := handlers.NewServer(logger)
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.WSHandler(),
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
