package http

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/proxima/pkg/utils/logging"
	"github.com/secmon-lab/proxima/pkg/utils/safe"
)

type Server struct {
	router             *chi.Mux
	interactionHandler *InteractionHandler
	publicKey          ed25519.PublicKey
}

type Options func(*Server)

// WithInteractions serves Discord interactions signed with publicKey
func WithInteractions(handler *InteractionHandler, publicKey ed25519.PublicKey) Options {
	return func(s *Server) {
		s.interactionHandler = handler
		s.publicKey = publicKey
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	// Interactions carry no auth beyond the Ed25519 signature
	if s.interactionHandler != nil {
		r.Route("/hooks/discord", func(r chi.Router) {
			r.Use(DiscordSignatureMiddleware(s.publicKey))
			r.Post("/interactions", s.interactionHandler.ServeHTTP)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	safe.Write(r.Context(), w, []byte("ok"))
}
