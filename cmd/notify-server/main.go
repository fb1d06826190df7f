package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/tchen/chat-notify/internal/api"
	"github.com/tchen/chat-notify/internal/config"
	"github.com/tchen/chat-notify/internal/database"
	"github.com/tchen/chat-notify/internal/listener"
	"github.com/tchen/chat-notify/internal/liveness"
	"github.com/tchen/chat-notify/internal/registry"
)

const defaultSigningKey = "c2VrcmV0LXNpZ25pbmcta2V5LWZvci1sb2NhbC1kZXY="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr              string
	dsn               string
	signingKey        string
	allowedOrigins    stringSliceFlag
	livenessTTL       time.Duration
	sweepInterval     time.Duration
	heartbeatInterval time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:6687", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=chat sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.DurationVar(&livenessTTL, "liveness-ttl", liveness.DefaultTTL, "how long a client heartbeat keeps a user alive")
	flag.DurationVar(&sweepInterval, "sweep-interval", liveness.DefaultSweepInterval, "how often expired users are evicted")
	flag.DurationVar(&heartbeatInterval, "heartbeat-interval", config.DefaultHeartbeatInterval, "interval between Heartbeat events on open streams")
	flag.Parse()

	logger := log.New(os.Stderr, "[notify-server] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.LivenessTTL = livenessTTL
	cfg.SweepInterval = sweepInterval
	cfg.HeartbeatInterval = heartbeatInterval

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate:", err)
	}

	reg := registry.NewRegistry(logger, cfg.ChannelBuffer)
	tracker := liveness.NewTracker(logger, reg, cfg.LivenessTTL, cfg.SweepInterval)

	lst, err := listener.NewListener(logger, cfg.DatabaseDSN, reg)
	if err != nil {
		logger.Fatal("listener:", err)
	}

	mux := http.NewServeMux()
	app := api.NewNotifyApp(mux, logger, reg, tracker, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tracker.Run(ctx)
	go lst.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	cancel()

	shutDownCtx, shutDownCancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer shutDownCancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
