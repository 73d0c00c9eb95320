package rest

import (
	"net/http"

	"dome-backend/infrastructure/config"
	"dome-backend/infrastructure/di"
	"dome-backend/interfaces/http/rest/handlers"
	"dome-backend/interfaces/http/rest/middleware"
	"dome-backend/pkg/auth"
	"dome-backend/web"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() (http.Handler, error) {
	cfg := rt.container.Config
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.container.Metrics != nil {
		router.Use(rt.container.Metrics.Middleware)
	}

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "HX-Request"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health checks
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.container.Metrics != nil {
		router.Handle("/metrics", rt.container.Metrics.Handler())
	}

	// Pages
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	staticFS, err := web.Static()
	if err != nil {
		return nil, err
	}
	pages := handlers.NewPagesHandler(tmpl, cfg.CookieName, cfg.CookieSecure, rt.logger)
	router.Get("/", pages.Index)
	router.Get("/login", pages.Login)
	router.Get("/register", pages.Register)
	router.Get("/logout", pages.Logout)
	router.Get("/main", pages.Main)
	router.Get("/profile", pages.Profile)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Runtime overrides: rate limits and the read-only flag hot-reload
	// from the overrides file
	ipLimit, userLimit := cfg.IPRateLimit, cfg.UserRateLimit
	if w := rt.container.Watcher; w != nil {
		if o := w.Current(); o != nil {
			if o.IPRateLimit > 0 {
				ipLimit = o.IPRateLimit
			}
			if o.UserRateLimit > 0 {
				userLimit = o.UserRateLimit
			}
		}
	}
	ipLimiter := auth.NewIPRateLimiter(ipLimit)
	userLimiter := auth.NewUserRateLimiter(userLimit)
	if w := rt.container.Watcher; w != nil {
		w.OnChange(func(o *config.Overrides) {
			ipLimiter.SetRate(o.IPRateLimit)
			userLimiter.SetRate(o.UserRateLimit)
		})
	}

	// API routes
	router.Route("/api", func(r chi.Router) {
		if w := rt.container.Watcher; w != nil {
			r.Use(middleware.ReadOnly(func() bool {
				return w.Current().ReadOnly
			}))
		}

		authHandler := handlers.NewAuthHandler(
			rt.container.UserService,
			rt.container.TokenGenerator,
			cfg.CookieName,
			cfg.CookieSecure,
			rt.logger,
		)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(middleware.AuthConfig{
				Validator:   rt.container.TokenValidator,
				CookieName:  cfg.CookieName,
				IPLimiter:   ipLimiter,
				UserLimiter: userLimiter,
				Logger:      rt.logger,
			}))

			userHandler := handlers.NewUserHandler(rt.container.UserService, rt.logger)
			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.Me)
				r.Put("/me", userHandler.UpdateProfile)
			})

			listHandler := handlers.NewListHandler(rt.container.ListService, rt.container.Metrics, rt.logger)
			orderHandler := handlers.NewOrderHandler(rt.container.ReorderService, rt.container.Metrics, rt.logger)
			r.Route("/lists", func(r chi.Router) {
				r.Post("/", listHandler.CreateList)
				r.Get("/", listHandler.ListLists)
				r.Route("/{listID}", func(r chi.Router) {
					r.Get("/", listHandler.GetList)
					r.Put("/", listHandler.RenameList)
					r.Delete("/", listHandler.DeleteList)

					r.Get("/order", orderHandler.GetOrder)
					r.Post("/order", orderHandler.SetOrder)

					r.Route("/items", func(r chi.Router) {
						r.Post("/", listHandler.CreateItem)
						r.Patch("/{itemID}", listHandler.UpdateItem)
						r.Delete("/{itemID}", listHandler.DeleteItem)
					})
				})
			})
		})
	})

	return router, nil
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
