package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/beatstream-server/internal/api/http/handler"
	"github.com/dtroode/beatstream-server/internal/api/http/middleware"
	"github.com/dtroode/beatstream-server/internal/api/http/response"
	"github.com/dtroode/beatstream-server/internal/cache"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
)

// HealthPath is the health endpoint. It is never rate limited.
const HealthPath = "/api/health"

// Options holds router settings that come from configuration.
type Options struct {
	AllowedOrigins []string
	TrustProxy     bool
	Production     bool
}

// Router represents the HTTP router of the API.
// It wires middleware and handlers onto a chi mux.
type Router struct {
	authService    handler.AuthService
	musicService   handler.MusicService
	tokens         middleware.TokenValidator
	limiter        *ratelimit.Limiter
	cache          *cache.Service
	health         handler.HealthChecker
	contextManager model.ContextManager
	logger         *logger.Logger
	opts           Options
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	musicService handler.MusicService,
	tokens middleware.TokenValidator,
	limiter *ratelimit.Limiter,
	cacheService *cache.Service,
	health handler.HealthChecker,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts Options,
) *Router {
	return &Router{
		authService:    authService,
		musicService:   musicService,
		tokens:         tokens,
		limiter:        limiter,
		cache:          cacheService,
		health:         health,
		contextManager: contextManager,
		logger:         logger,
		opts:           opts,
	}
}

// Register builds the handler tree.
//
// Every request is identified from its bearer token, when present, before
// rate limiting so the limiter can pick the caller's tier. Routes that need
// a user then run Require after their limiter, so rejected tokens still count.
func (r *Router) Register() http.Handler {
	writer := response.NewWriter(r.logger, r.opts.Production)
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokens, r.contextManager, writer, r.logger)
	limits := middleware.NewRateLimit(r.limiter, r.contextManager, writer, r.logger, middleware.RateLimitConfig{
		HealthPath: HealthPath,
		TrustProxy: r.opts.TrustProxy,
	})

	authHandler := handler.NewAuth(r.authService, r.contextManager, writer, r.logger)
	musicHandler := handler.NewMusic(r.musicService, r.contextManager, writer, r.logger)
	userHandler := handler.NewUser(r.musicService, r.contextManager, writer, r.logger)
	adminHandler := handler.NewAdmin(r.limiter, r.cache, r.contextManager, writer, r.logger)
	healthHandler := handler.NewHealth(r.health, writer)

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID)
	if r.opts.TrustProxy {
		mux.Use(chimiddleware.RealIP)
	}
	mux.Use(logging.Handle)
	mux.Use(middleware.Recover(writer))
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(authenticate.Identify)

	mux.Get(HealthPath, healthHandler.Check)
	mux.Handle("/metrics", promhttp.Handler())

	general := limits.For(ratelimit.ClassGeneral)
	requireAuth := authenticate.Require(false)

	mux.Route("/api/auth", func(ar chi.Router) {
		ar.With(limits.For(ratelimit.ClassAuth)).Post("/register", authHandler.Register)
		ar.With(limits.For(ratelimit.ClassAuthLogin)).Post("/login", authHandler.Login)
		ar.With(limits.For(ratelimit.ClassAuth)).Post("/refresh", authHandler.Refresh)
		ar.With(limits.For(ratelimit.ClassAuth), requireAuth).Post("/logout", authHandler.Logout)

		ar.Group(func(sr chi.Router) {
			sr.Use(limits.For(ratelimit.ClassStrict))
			sr.Post("/password/forgot", authHandler.ForgotPassword)
			sr.Post("/password/reset", authHandler.ResetPassword)
		})
	})

	mux.Route("/api/music", func(mr chi.Router) {
		mr.With(limits.For(ratelimit.ClassSearch)).Get("/search", musicHandler.Search)

		mr.Group(func(gr chi.Router) {
			gr.Use(general)
			gr.Get("/trending", musicHandler.Trending)
			gr.Get("/popular", musicHandler.Popular)
			gr.Get("/songs/{id}", musicHandler.GetSong)
			gr.Get("/songs/{id}/stream", musicHandler.Stream)
			gr.With(requireAuth).Post("/songs/{id}/like", musicHandler.Like)
		})

		mr.With(limits.For(ratelimit.ClassUpload), authenticate.Require(true)).Post("/songs", musicHandler.Upload)
	})

	mux.Route("/api/users", func(ur chi.Router) {
		ur.Use(general, requireAuth)
		ur.Get("/me", userHandler.Me)
		ur.Get("/me/recently-played", userHandler.RecentlyPlayed)
	})

	mux.Route("/api/admin", func(adm chi.Router) {
		adm.Use(general, requireAuth, authenticate.RequireAdmin)
		adm.Post("/ratelimit/reset", adminHandler.ResetRateLimit)
		adm.Delete("/cache/{namespace}", adminHandler.ClearCache)
	})

	return mux
}
