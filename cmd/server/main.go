package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"admissionscheduling/config"
	"admissionscheduling/internal/adapters/audit"
	"admissionscheduling/internal/adapters/auth"
	"admissionscheduling/internal/adapters/email"
	"admissionscheduling/internal/adapters/programdir"
	delivery "admissionscheduling/internal/delivery/http"
	"admissionscheduling/internal/delivery/http/controllers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/repository/postgres"
	"admissionscheduling/internal/services"
)

// @title Admission Scheduling API
// @version 1.0
// @description Scheduling and booking engine for admissions events: interview slots, open enrollment and invitations.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger()
	logger.Info("starting admission scheduling service", "env", cfg.Environment, "port", cfg.Port)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("database connection established")

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	windowRepo := postgres.NewWindowRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	changeRepo := postgres.NewChangeRequestRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	tx := postgres.NewTxManager(db)

	// Adapters
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	directory := programdir.NewHTTPClient(cfg.DirectoryURL, nil)
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}
	notifier := email.NewNotifier(mailer, email.NewTemplateRenderer(), directory)
	auditLog := audit.NewSlogAuditLog(logger)

	// Services
	eventSvc := services.NewEventService(eventRepo, windowRepo, slotRepo, appointmentRepo, attendanceRepo, tx, auditLog, logger)
	scheduleSvc := services.NewScheduleService(eventRepo, windowRepo, slotRepo, appointmentRepo, tx, auditLog, logger)
	bookingSvc := services.NewBookingService(eventRepo, windowRepo, slotRepo, appointmentRepo, tx, notifier, auditLog, logger)
	changeSvc := services.NewChangeRequestService(appointmentRepo, changeRepo, windowRepo, slotRepo, tx, notifier, auditLog, logger)
	enrollmentSvc := services.NewEnrollmentService(eventRepo, attendanceRepo, tx, notifier, auditLog, logger)
	invitationSvc := services.NewInvitationService(eventRepo, attendanceRepo, invitationRepo, directory, tx, notifier, auditLog, logger)

	// Controllers and router
	mux := delivery.NewRouter(
		verifier,
		logger,
		controllers.NewEventController(logger, eventSvc),
		controllers.NewScheduleController(logger, scheduleSvc),
		controllers.NewBookingController(logger, bookingSvc, changeSvc),
		controllers.NewEnrollmentController(logger, enrollmentSvc),
		controllers.NewInvitationController(logger, invitationSvc),
	)

	handler := middleware.LoggingMiddleware(logger, mux)
	if len(cfg.CORSOrigins) > 0 {
		handler = middleware.CORS(cfg.CORSOrigins, handler)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	logger.Info("stopped")
}
