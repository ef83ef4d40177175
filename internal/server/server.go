package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cortexa-ai/apiserver/config"
	"github.com/cortexa-ai/apiserver/internal/db"
	"github.com/cortexa-ai/apiserver/internal/handlers"
	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/cortexa-ai/apiserver/internal/ml"
	"github.com/cortexa-ai/apiserver/internal/notify"
	"github.com/cortexa-ai/apiserver/internal/services"
	"github.com/cortexa-ai/apiserver/internal/store"
	"github.com/cortexa-ai/apiserver/internal/txretry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     notify.Backend
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	pg := store.NewPostgres(dbConn)
	retry := txretry.NewRunner(txretry.DefaultPolicy, store.IsContention, log)
	predictor := ml.NewClient(cfg.ML.ServiceURL, time.Duration(cfg.ML.TimeoutSeconds)*time.Second)
	mailSender := mailer.NewSender(cfg.SMTP, log)

	// Best-effort emails go through the broker when one is configured so a
	// slow SMTP hop never sits inside a request. Without a broker they fall
	// back to the inline sender.
	var broker notify.Backend
	notifySender := mailSender
	if cfg.Broker.Driver != "" {
		broker, err = notify.NewBackend(ctx, cfg.Broker)
		if err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("failed to connect notification broker: %w", err)
		}
		notifySender = notify.NewPublisher(broker, cfg.Broker.Channel)
	}

	authService := services.NewAuthService(pg, pg.Storage(), retry, mailSender, notifySender, log)
	assessmentService := services.NewAssessmentService(pg, pg.Storage(), retry, predictor, notifySender, log)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/assessment", func(r chi.Router) {
		handlers.AssessmentRouter(r, assessmentService, authMiddleware)
	})
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, jwtSecret)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
