package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/sheetlens/internal/auth"
	"github.com/geocoder89/sheetlens/internal/cache"
	"github.com/geocoder89/sheetlens/internal/config"
	"github.com/geocoder89/sheetlens/internal/http/handlers"
	"github.com/geocoder89/sheetlens/internal/http/middlewares"
	"github.com/geocoder89/sheetlens/internal/observability"
	"github.com/geocoder89/sheetlens/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("sheetlens"))
	}

	// fresh registry per router so tests can build several engines
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// wire up repositories, session manager and the history cache

	usersRepo := postgres.NewUsersRepo(pool, prom)
	uploadsRepo := postgres.NewUploadsRepo(pool, prom)
	tasksRepo := postgres.NewTasksRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	authMw := middlewares.NewAuthMiddleware(jwtManager)
	historyCache := cache.New(30 * time.Second)

	usersHandler := handlers.NewUsersHandler(usersRepo, usersRepo, jwtManager)
	uploadsHandler := handlers.NewUploadsHandler(uploadsRepo, historyCache, prom, cfg.UploadMaxBytes)
	tasksHandler := handlers.NewTasksHandler(tasksRepo)
	adminHandler := handlers.NewAdminHandler(usersRepo)

	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	uploadLimiter := middlewares.NewRateLimiter(20, time.Minute)

	// public auth routes

	r.POST("/users", middlewares.RequireJSON(), authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Register)
	r.POST("/users/login", middlewares.RequireJSON(), authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Login)

	// authenticated routes

	authed := r.Group("/", authMw.RequireAuth())

	authed.GET("/users/profile", usersHandler.Profile)

	// multipart framing needs headroom beyond the file cap itself
	authed.POST("/upload",
		middlewares.MaxBodyBytes(cfg.UploadMaxBytes+1<<20),
		uploadLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
		uploadsHandler.Upload,
	)
	authed.GET("/upload/history", uploadsHandler.History)
	authed.GET("/upload/:id", uploadsHandler.GetByID)

	authed.POST("/tasks", middlewares.RequireJSON(), tasksHandler.Create)
	authed.GET("/tasks", tasksHandler.List)
	authed.PUT("/tasks/:id", middlewares.RequireJSON(), tasksHandler.Update)
	authed.DELETE("/tasks/:id", tasksHandler.Delete)

	// admin routes

	admin := r.Group("/admin", authMw.RequireAuth(), authMw.RequireAdmin())
	admin.GET("/users", adminHandler.ListUsers)

	return r
}
