package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/lingochat/lingochat/internal/api"
	"github.com/lingochat/lingochat/internal/config"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/server"
	"github.com/lingochat/lingochat/internal/stats"
	"github.com/lingochat/lingochat/internal/translation"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "", "server address")
	flag.StringVar(&dsn, "dsn", "", "database connection string")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[lingochat] ", log.LstdFlags)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatal("config: ", err)
	}

	// flags win over the environment
	if addr != "" {
		cfg.ServerAddr = addr
	}
	if dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if len(allowedOrigins) > 0 {
		cfg.AllowedOrigins = allowedOrigins
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config: ", err)
	}

	dbConn, err := database.NewPgLingoChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate: ", err)
	}

	var translator translation.Translator
	if cfg.OpenAIAPIKey != "" {
		translator = translation.NewOpenAITranslator(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	} else {
		logger.Println("no OpenAI API key configured, using stub translator")
		translator = translation.NewStubTranslator()
	}

	statsUpdater := stats.NewStats(logger, server.StatNames()...)

	limiter := server.NewRateLimiter(cfg.RateLimitPerSecond, time.Second)
	limiter.Run()
	defer limiter.Stop()

	chatServer := server.NewChatServer(dbConn, translator, limiter, statsUpdater, cfg.TranslationTimeout, logger)
	chatServer.Run()

	srv := api.NewLingoChatApp(logger, chatServer, dbConn, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
