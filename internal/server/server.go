package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talksphere/server/internal/assistant/auth"
	"github.com/talksphere/server/internal/assistant/chat"
	"github.com/talksphere/server/internal/assistant/model"
	"github.com/talksphere/server/internal/assistant/profile"
	"github.com/talksphere/server/internal/assistant/tools"
	"github.com/talksphere/server/internal/core"
	logx "github.com/talksphere/server/pkg/logger"
	"github.com/talksphere/server/pkg/metrics"
)

// Config is everything the HTTP layer needs besides the services.
type Config struct {
	Environment core.Environment
	Server      model.ServerConfig
	Auth        model.AuthConfig
}

// Deps are the domain services behind the routes.
type Deps struct {
	Auth    *auth.Service
	Profile *profile.Service
	Chat    *chat.Service
	Tools   *tools.Registry
}

type Server struct {
	router  *chi.Mux
	cfg     Config
	auth    *auth.Service
	profile *profile.Service
	chat    *chat.Service
	tools   *tools.Registry
}

func New(cfg Config, deps Deps) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		auth:    deps.Auth,
		profile: deps.Profile,
		chat:    deps.Chat,
		tools:   deps.Tools,
	}
	s.middleware()
	s.routes()
	return s
}

func (s *Server) middleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(logx.HTTPMiddleware()...)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) routes() {
	r := s.router

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/signup", s.handleSignup)
	r.Post("/signin", s.handleSignin)
	r.Post("/logout", s.handleLogout)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/me", s.handleCurrent)
		r.Get("/api/current", s.handleCurrent)
		r.Post("/set-assistant", s.handleSetAssistant)
		r.Get("/api/history", s.handleHistory)
		r.Delete("/api/history", s.handleClearHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.optionalUser)
		r.Post("/api/chat", s.handleChat)
		r.Post("/api/chat-with-file", s.handleChatWithFile)
	})

	for _, t := range s.tools.Tools() {
		r.Get(t.Path, s.handleTool(t))
	}
	r.Post("/api/upload-drive", s.handleUploadDrive)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, errorBody{Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusMethodNotAllowed, errorBody{Message: "method not allowed"})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer wraps the router in an http.Server bound to addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	readTimeout := s.cfg.Server.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
