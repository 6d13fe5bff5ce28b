package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"biglietto/config"
	"biglietto/internal/adapters/credential"
	"biglietto/internal/adapters/email"
	"biglietto/internal/adapters/pdf"
	"biglietto/internal/adapters/qr"
	"biglietto/internal/adapters/render"
	httpdelivery "biglietto/internal/delivery/http"
	"biglietto/internal/delivery/http/controllers"
	"biglietto/internal/delivery/http/middleware"
	"biglietto/internal/repository/postgres"
	"biglietto/internal/services"
)

// @title Biglietto API
// @version 1.0
// @description Event registration and ticket delivery service.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	regRepo := postgres.NewRegistrationRepository(db)
	ledger := postgres.NewDeliveryRecordRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mailer.SESRegion,
			AccessKeyID:        cfg.Mailer.SESAccessKeyID,
			SecretAccessKey:    cfg.Mailer.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Mailer.SESInsecureSkipTLS,
		},
	}, logger)
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}

	fitter, err := render.NewFitter()
	if err != nil {
		logger.Error("load ticket font", "err", err)
		os.Exit(1)
	}
	layout := render.DefaultLayout()
	resolver := render.NewBackgroundResolver(
		cfg.BackgroundsDir,
		cfg.LegacyBackgroundsDir,
		&http.Client{Timeout: 15 * time.Second},
		layout.Width,
		layout.Height,
		logger,
	)

	dispatcher := services.NewNotificationDispatcher(mailer, cfg.Mailer.Timeout, logger)
	tickets := services.NewTicketService(
		eventRepo,
		regRepo,
		ledger,
		templateRepo,
		credential.NewGenerator(),
		qr.NewEncoder(),
		render.NewCompositor(resolver, fitter, layout),
		pdf.NewAssembler(),
		dispatcher,
		logger,
	)

	registrationController := controllers.NewRegistrationController(logger, tickets)
	templateController := controllers.NewTemplateController(logger, templateRepo)

	var handler http.Handler = httpdelivery.NewRouter(registrationController, templateController)
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	handler = middleware.LoggingMiddleware(logger, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
