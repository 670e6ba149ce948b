package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/taskhub-server/internal/api/http/handler"
	"github.com/dtroode/taskhub-server/internal/api/http/middleware"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router settings taken from the HTTP config group.
type Config struct {
	CORSAllowedOrigin string
	MaxAvatarBytes    int64
	UploadRatePerMin  int
	UploadBurst       int
}

// Router wires the HTTP API routes and middleware.
type Router struct {
	authService    handler.AuthService
	profileService handler.ProfileService
	tokenService   middleware.TokenService
	contextManager model.ContextManager
	metrics        metrics.Recorder
	metricsHandler http.Handler
	db             Pinger
	cfg            Config
	logger         *logger.Logger

	limiter *middleware.RateLimiter
}

// New creates a new HTTP Router instance.
func New(
	authService handler.AuthService,
	profileService handler.ProfileService,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	recorder metrics.Recorder,
	metricsHandler http.Handler,
	db Pinger,
	cfg Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		profileService: profileService,
		tokenService:   tokenService,
		contextManager: contextManager,
		metrics:        recorder,
		metricsHandler: metricsHandler,
		db:             db,
		cfg:            cfg,
		logger:         logger,
	}
}

// Register builds the handler tree.
func (r *Router) Register() http.Handler {
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	logging := middleware.NewLogging(r.logger, r.metrics)
	r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: r.cfg.UploadRatePerMin,
		Burst:     r.cfg.UploadBurst,
	}, r.contextManager, r.logger)

	authHandler := handler.NewAuth(r.authService, r.contextManager, r.logger)
	profileHandler := handler.NewProfile(r.profileService, r.contextManager, r.cfg.MaxAvatarBytes, r.logger)

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(logging.Handle)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.NewCORS(r.cfg.CORSAllowedOrigin))

	mux.Get("/healthz", r.health)
	if r.metricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", r.metricsHandler)
	}

	mux.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", authHandler.SignUp)
			auth.Post("/token", authHandler.Token)

			auth.Group(func(protected chi.Router) {
				protected.Use(authenticate.Handle)
				protected.Post("/logout", authHandler.Logout)
				protected.Get("/user", authHandler.User)
			})
		})

		api.Route("/profile", func(profile chi.Router) {
			profile.Use(authenticate.Handle)
			profile.Get("/", profileHandler.Get)
			profile.Patch("/", profileHandler.Update)

			profile.With(r.limiter.Handle).Post("/avatar", profileHandler.UploadAvatar)
			profile.Delete("/avatar", profileHandler.DeleteAvatar)
		})
	})

	return mux
}

// Close stops background work started by Register.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.db != nil {
		if err := r.db.Ping(req.Context()); err != nil {
			r.logger.Warn("Router: health check failed", "error", err.Error())
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
