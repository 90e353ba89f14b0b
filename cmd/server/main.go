package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/api"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/config"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/logging"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

// openSessionStore picks the configured backend. An unreachable Redis falls
// back to process memory so a single instance still works.
func openSessionStore(ctx context.Context, cfg config.SessionConfig, log *logrus.Entry) (session.Store, *redis.Client, string) {
	if cfg.Store == "redis" && cfg.RedisURL != "" {
		client := session.NewRedisClient(cfg.RedisURL)
		store := session.NewRedisStore(client, cfg.TTL())

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("Redis unreachable, falling back to in-memory sessions")
			client.Close()
		} else {
			log.WithField("addr", client.Options().Addr).Info("Redis session store connected")
			return store, client, "redis"
		}
	}

	mem := session.NewMemoryStore(cfg.TTL())
	go mem.StartSweeper(ctx, time.Minute)
	return mem, nil, "memory"
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logging.Log.WithError(err).Fatal("Failed to load config")
	}
	logging.Configure(cfg.Log.Level)
	log := logging.For("server")

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.WithError(err).Fatal("Pre-flight check FAILED")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, redisClient, storeKind := openSessionStore(ctx, cfg.Session, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	builder, err := report.NewBuilder(cfg.Report.Options())
	if err != nil {
		log.WithError(err).Fatal("Failed to build report templates")
	}

	handlers := api.NewHandlers(store, builder, api.HandlerConfig{
		CookieName:     cfg.Session.CookieName,
		SessionTTL:     cfg.Session.TTL(),
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})
	health := api.NewHealthChecker(storeKind, redisClient)
	server := api.NewServer(cfg.Server, handlers, health)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.WithFields(logrus.Fields{
			"addr":          addr,
			"session_store": storeKind,
		}).Info("Starting server")
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server error")
		}
	}()

	<-done
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	log.Info("Server stopped")
}
