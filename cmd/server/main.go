package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bankportal/backend/internal/config"
	"github.com/bankportal/backend/internal/database"
	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/handlers"
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/notify"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/internal/storage"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var storageClient *storage.MinIOClient
	if cfg.MinIO.Endpoint != "" {
		storageClient, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := storageClient.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
	}

	var eng engine.Engine
	if cfg.Engine.APIKey != "" {
		eng = engine.NewOpenRouterEngine(cfg.Engine.APIKey,
			engine.WithBaseURL(cfg.Engine.BaseURL),
			engine.WithModel(cfg.Engine.Model),
			engine.WithTimeout(cfg.Engine.Timeout),
			engine.WithMaxRetries(cfg.Engine.MaxRetries),
		)
		logger.Info("engine_configured", map[string]interface{}{"model": cfg.Engine.Model})
	} else {
		eng = engine.NewScriptedEngine(engine.DefaultScript()...)
		logger.Warn("engine_scripted_fallback", map[string]interface{}{
			"reason": "no engine api key configured",
		})
	}

	notifier := notify.NewWhatsAppClient(cfg.Twilio)

	pending := services.NewPendingStore()
	sessions := services.NewSessionService(db, cfg.Session.TTL)
	otpIssuer := services.NewOTPIssuer(cfg.OTP.Mode, cfg.OTP.DemoCode, cfg.OTP.Validity)
	audit := services.NewAuditService(db, storageClient)
	audit.StartExporter(cfg.Audit.ExportInterval)

	verification := services.NewVerificationService(
		db, pending, sessions, eng, otpIssuer, audit, notifier,
		cfg.Verification.MaxTurns, cfg.Engine.Timeout,
	)
	chat := services.NewChatService(eng, cfg.Engine.Timeout)

	authHandler := handlers.NewAuthHandler(verification)
	agentHandler := handlers.NewAgentHandler(verification, chat, notifier)
	loansHandler := handlers.NewLoansHandler(db, audit)
	transfersHandler := handlers.NewTransfersHandler(db, audit)
	dashboardHandler := handlers.NewDashboardHandler(db)
	activitiesHandler := handlers.NewActivitiesHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(sessions)

	app := fiber.New(fiber.Config{BodyLimit: 1 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(middleware.CallerSession(cfg.Session.CookieName))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/verify-otp", authHandler.VerifyOTP)
	authRoutes.Post("/logout", authMiddleware.OptionalAuth, authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	agentRoutes := api.Group("/agent")
	agentRoutes.Post("/security", agentHandler.SecurityTurn)
	agentRoutes.Post("/chat", agentHandler.ChatWebhook)

	api.Get("/dashboard/stats", authMiddleware.RequireAuth, dashboardHandler.Stats)
	api.Get("/activities", authMiddleware.RequireAuth, activitiesHandler.List)

	loanRoutes := api.Group("/loans", authMiddleware.RequireAuth)
	loanRoutes.Get("/", loansHandler.ListPending)
	loanRoutes.Post("/:id/approve", loansHandler.Approve)
	loanRoutes.Post("/:id/reject", loansHandler.Reject)

	transferRoutes := api.Group("/transfers", authMiddleware.RequireAuth)
	transferRoutes.Get("/", transfersHandler.ListPending)
	transferRoutes.Post("/:id/approve", transfersHandler.Approve)
	transferRoutes.Post("/:id/reject", transfersHandler.Reject)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
