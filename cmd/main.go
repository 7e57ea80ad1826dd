package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"taskhub/internal/handler"
	"taskhub/internal/mailer"
	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/internal/service"
	"taskhub/internal/store"
	"taskhub/pkg/config"
	"taskhub/pkg/database"
	"taskhub/pkg/logger"
	"taskhub/pkg/tokens"
	"taskhub/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables.
	// Missing database name or auth secret is fatal.
	cfg, err := config.Load("taskhub")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting taskhub...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db,
		&model.User{},
		&model.Session{},
		&model.Organization{},
		&model.OrganizationMember{},
		&model.OrganizationInvite{},
		&model.ImpersonationLog{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Stores
	users := store.NewUsers(db)
	sessions := store.NewSessions(db)
	orgs := store.NewOrganizations(db)
	impLogs := store.NewImpersonation(db)
	audit := store.NewAudit(db)

	// Services
	signer := tokens.NewSigner(cfg.Auth.Secret)
	sessionSvc := service.NewSessionService(sessions, signer, cfg.Auth.SessionTTL)
	userSvc := service.NewUserService(users, audit)
	authz := service.NewAuthorizer(users, orgs)
	mail := mailer.New(cfg.Mail.Provider, cfg.Mail.From, log)
	orgSvc := service.NewOrganizationService(orgs, sessions, audit, mail, cfg.Auth.InviteTTL)
	impSvc := service.NewImpersonationService(users, impLogs, sessionSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(userSvc, sessionSvc, &cfg.Auth)
	userHandler := handler.NewUserHandler(userSvc, sessionSvc, orgSvc)
	adminHandler := handler.NewAdminHandler(authz, userSvc)
	impHandler := handler.NewImpersonationHandler(authz, impSvc, &cfg.Auth)
	orgHandler := handler.NewOrganizationHandler(authz, orgSvc, userSvc)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.Metrics)

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// API routes - all require a live session
	api := e.Group("/api")
	api.Use(middleware.SessionAuth(sessionSvc, cfg.Auth.CookieName))

	api.POST("/auth/logout", authHandler.Logout)

	// User self-management
	user := api.Group("/user")
	user.GET("/profile", userHandler.GetProfile)
	user.PUT("/profile", userHandler.UpdateProfile)
	user.GET("/onboarding", userHandler.GetOnboarding)
	user.POST("/onboarding/complete", userHandler.CompleteOnboarding)
	user.POST("/onboarding/skip", userHandler.SkipOnboarding)
	user.POST("/onboarding/restart", userHandler.RestartOnboarding)
	user.PUT("/current-organization", userHandler.SetCurrentOrganization)
	user.DELETE("/sessions/:sessionId", userHandler.RevokeSession)

	// Organizations
	organizations := api.Group("/organizations")
	organizations.POST("", orgHandler.Create)
	organizations.GET("", orgHandler.List)
	organizations.POST("/invites/accept", orgHandler.AcceptInvite)
	organizations.GET("/:slug", orgHandler.Get)
	organizations.PUT("/:slug", orgHandler.Update)
	organizations.DELETE("/:slug", orgHandler.Delete)
	organizations.GET("/:slug/members", orgHandler.ListMembers)
	organizations.PUT("/:slug/members/:userId/role", orgHandler.UpdateMemberRole)
	organizations.DELETE("/:slug/members/:userId", orgHandler.RemoveMember)
	organizations.GET("/:slug/invites", orgHandler.ListInvites)
	organizations.POST("/:slug/invites", orgHandler.CreateInvite)

	// Platform administration
	admin := api.Group("/admin")
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
	admin.POST("/impersonate", impHandler.Start)
	admin.POST("/impersonate/stop", impHandler.Stop)
	admin.GET("/impersonate/active", impHandler.Active)
	admin.GET("/impersonate/logs", impHandler.Logs)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
