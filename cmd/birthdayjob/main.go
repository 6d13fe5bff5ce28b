package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"

	"biglietto/config"
	"biglietto/internal/adapters/email"
	"biglietto/internal/repository/postgres"
	"biglietto/internal/services"
)

// Runs one birthday greeting pass for today and exits. Meant to be invoked
// daily from cron; the delivery ledger makes repeated runs on the same day
// harmless.
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

	svc := services.NewBirthdayService(
		postgres.NewRegistrationRepository(db),
		postgres.NewTemplateRepository(db),
		postgres.NewDeliveryRecordRepository(db),
		services.NewNotificationDispatcher(mailer, cfg.Mailer.Timeout, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	summary, err := svc.Run(ctx, time.Now())
	if err != nil {
		logger.Error("birthday run failed", "err", err)
		os.Exit(1)
	}
	logger.Info("birthday run complete",
		"eligible", summary.Eligible,
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	if summary.Failed > 0 {
		os.Exit(2)
	}
}
