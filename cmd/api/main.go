package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sosai/counsel/backend/internal/config"
	"github.com/sosai/counsel/backend/internal/handler"
	"github.com/sosai/counsel/backend/internal/service/analyzer"
	"github.com/sosai/counsel/backend/internal/service/auth"
	"github.com/sosai/counsel/backend/internal/service/escalation"
	"github.com/sosai/counsel/backend/internal/service/relay"
	"github.com/sosai/counsel/backend/internal/storage/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := transcript.New(transcript.Driver(cfg.Store.Driver), transcript.Options{
		SQLitePath: cfg.Store.SQLitePath,
		RedisAddr:  cfg.Store.RedisAddr,
		RedisTTL:   cfg.Store.RedisTTL,
	})
	if err != nil {
		log.Fatalf("failed to open transcript store: %v", err)
	}
	defer store.Close()
	log.Printf("transcript store ready driver=%s", cfg.Store.Driver)

	an, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize analyzer: %v", err)
	}

	alerts := escalation.NewBroadcaster()

	relaySvc := relay.NewService(store, an, alerts, relay.Config{
		HistoryWindow: cfg.Relay.HistoryWindow,
		CallTimeout:   cfg.Analyzer.Timeout,
		InboxDepth:    cfg.Relay.InboxDepth,
		IdleTimeout:   cfg.Relay.IdleTimeout,
		SweepInterval: cfg.Relay.SweepInterval,
	})
	defer relaySvc.Close()

	creds := auth.NewMemoryCredentials()
	authSvc := auth.New(creds)

	router := handler.NewRouter(relaySvc, authSvc, creds, store, alerts)

	startServer(ctx, cfg.Server, router)
}

// buildAnalyzer picks the risk analyzer implementation for the configured
// mode.
func buildAnalyzer(ctx context.Context, cfg *config.Config) (analyzer.Analyzer, error) {
	switch cfg.Analyzer.Mode {
	case "remote":
		log.Printf("using remote analyzer url=%s", cfg.Analyzer.URL)
		return analyzer.NewRemote(cfg.Analyzer.URL, cfg.Analyzer.Timeout), nil
	case "llm":
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			return nil, err
		}
		llm, err := analyzer.NewLLM(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		log.Printf("using llm analyzer model=%s", cfg.AI.Model)
		return llm, nil
	default:
		log.Println("using heuristic analyzer")
		return analyzer.Heuristic{}, nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("counsel relay backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
