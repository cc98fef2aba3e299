package api

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/lingochat/lingochat/internal/config"
	"github.com/lingochat/lingochat/internal/database"
	"github.com/lingochat/lingochat/internal/server"
	"github.com/teris-io/shortid"
)

type LingoChatApp struct {
	log            *log.Logger
	db             database.LingoChatRepository
	mux            *http.Server
	cs             *server.ChatServer
	validate       *validator.Validate
	allowedOrigins []string

	// overridable in tests
	generateShortId func() (string, error)
}

func NewLingoChatApp(logger *log.Logger, cs *server.ChatServer, db database.LingoChatRepository, cfg *config.Config) *LingoChatApp {
	s := &LingoChatApp{
		log:             logger,
		db:              db,
		cs:              cs,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", s.signup)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("POST /api/rooms/direct", s.authMiddleware(s.createDirectRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.Handle("GET /debug/vars", expvar.Handler())

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *LingoChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *LingoChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
