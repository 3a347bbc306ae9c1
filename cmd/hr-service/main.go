package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/peoplehub/peoplehub-backend/internal/assistant"
	authevents "github.com/peoplehub/peoplehub-backend/internal/auth/events"
	authhandler "github.com/peoplehub/peoplehub-backend/internal/auth/handler"
	"github.com/peoplehub/peoplehub-backend/internal/auth/jwt"
	authrepo "github.com/peoplehub/peoplehub-backend/internal/auth/repository"
	authservice "github.com/peoplehub/peoplehub-backend/internal/auth/service"
	"github.com/peoplehub/peoplehub-backend/internal/hr/events"
	"github.com/peoplehub/peoplehub-backend/internal/hr/handler"
	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
	"github.com/peoplehub/peoplehub-backend/internal/hr/service"
	"github.com/peoplehub/peoplehub-backend/internal/notification"
	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/httputil"
	"github.com/peoplehub/peoplehub-backend/pkg/i18n"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/peoplehub/peoplehub-backend/pkg/messaging"
)

const serviceName = "hr-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting HR Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Int("applied", applied).Msg("database migrated")
	}

	// RabbitMQ is optional outside production; without it events are dropped
	var (
		hrPublisher   *events.HREventPublisher
		authPublisher *authevents.AuthEventPublisher
		rmq           *messaging.RabbitMQ
	)
	rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		if config.IsProductionLike(cfg.Server.Environment) {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events disabled")
	} else {
		defer rmq.Close()

		if hrPublisher, err = events.NewRabbitHREventPublisher(rmq, log); err != nil {
			log.Fatal().Err(err).Msg("failed to create hr event publisher")
		}
		if authPublisher, err = authevents.NewRabbitAuthEventPublisher(rmq, log); err != nil {
			log.Fatal().Err(err).Msg("failed to create auth event publisher")
		}
		if err := startNotifier(ctx, rmq, cfg.SMTP, log); err != nil {
			log.Fatal().Err(err).Msg("failed to start notification consumer")
		}
	}

	// Initialize repositories
	departmentRepo := repository.NewDepartmentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	importStore := repository.NewImportStore(db)
	userRepo := authrepo.NewUserRepository(db)
	sessionRepo := authrepo.NewSessionRepository(db)

	// Initialize services
	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(userRepo, sessionRepo, employeeRepo, jwtManager, authPublisher, log)
	staffService := service.NewStaffService(employeeRepo, hrPublisher, log)
	departmentService := service.NewDepartmentService(departmentRepo)
	resumeService := service.NewResumeService()
	importService := service.NewImportService(importStore, hrPublisher, service.ImportOptions{
		Sheet:  cfg.Import.Sheet,
		Strict: cfg.Import.Strict,
	}, log)

	chatService, err := assistant.NewGeminiChatService(ctx, cfg.Gemini, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gemini client")
	}

	if created, err := authService.SeedAdmin(ctx, cfg.Seed); err != nil {
		log.Error().Err(err).Msg("failed to seed administrator")
	} else if created {
		log.Info().Str("email", cfg.Seed.AdminEmail).Msg("administrator seeded")
	}

	// Initialize handlers
	authHandler := authhandler.NewAuthHandler(authService, log)
	departmentHandler := handler.NewDepartmentHandler(departmentService, log)
	employeeHandler := handler.NewEmployeeHandler(staffService, resumeService, log)
	importHandler := handler.NewImportHandler(importService, cfg.Import, log)
	assistantHandler := assistant.NewHandler(chatService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Accept-Language"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":    "healthy",
			"service":   serviceName,
			"database":  db.Health(r.Context()),
			"assistant": chatService.Enabled(),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	authenticate := httputil.Authenticate(jwtManager, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Post("/register/employee", authHandler.RegisterEmployee)
			r.With(authenticate).Get("/me", authHandler.Me)
		})

		r.Get("/departments", departmentHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeHandler.List)
				r.Post("/", employeeHandler.Create)
				r.Get("/profile", employeeHandler.Profile)
				r.Get("/profile/resume", employeeHandler.Resume)
				r.With(httputil.RequireRole(authrepo.RoleAdmin)).Post("/import", importHandler.Import)
				r.Get("/{id}", employeeHandler.Get)
				r.Put("/{id}", employeeHandler.Update)
				r.Delete("/{id}", employeeHandler.Delete)
			})

			r.Post("/assistant/chat", assistantHandler.Chat)
			r.Get("/assistant/health", assistantHandler.Health)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Hourly sweep of expired refresh sessions
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sessionRepo.CleanExpired(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("failed to clean expired sessions")
					continue
				}
				if removed > 0 {
					log.Info().Int64("removed", removed).Msg("expired sessions cleaned")
				}
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func startNotifier(ctx context.Context, rmq *messaging.RabbitMQ, cfg config.SMTPConfig, log *logger.Logger) error {
	if err := rmq.DeclareDeadLetterQueue(notification.QueueName); err != nil {
		return err
	}
	consumer, err := messaging.NewConsumer(rmq, notification.QueueName, log)
	if err != nil {
		return err
	}
	if err := notification.Subscribe(consumer); err != nil {
		return err
	}

	notification.NewNotifier(notification.NewSMTPMailer(cfg, log), cfg.Locale, log).Register(consumer)
	return consumer.Start(ctx)
}
