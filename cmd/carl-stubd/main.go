package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/carl-assist/carl-client/internal/config"
	"github.com/carl-assist/carl-client/internal/logging"
	"github.com/carl-assist/carl-client/internal/stub"
)

// carl-stubd is the in-memory development backend. Point the client at
// it with CARL_API_URL=http://localhost:8000 CARL_WS_URL=ws://localhost:8000.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	server := stub.NewServer(log)
	log.Info("stub backend listening",
		zap.String("addr", ":"+port),
		zap.String("demo_account", "demo@carl.com / demo"))

	if err := http.ListenAndServe(":"+port, server.Routes()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
