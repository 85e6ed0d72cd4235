package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/pflag"
	"github.com/terraincognita07/roomdesk/internal/api"
	"github.com/terraincognita07/roomdesk/internal/cli"
	"github.com/terraincognita07/roomdesk/internal/config"
	"github.com/terraincognita07/roomdesk/internal/db"
	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/mailer"
	"github.com/terraincognita07/roomdesk/internal/services"
	"gorm.io/gorm"
)

const (
	commandServe         = "serve"
	commandResetPassword = "reset-password"
	commandMailWorker    = "mail-worker"
	shutdownTimeout      = 10 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "roomdesk: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command, rest := splitCommand(args)
	switch command {
	case commandServe:
		return runServe()
	case commandResetPassword:
		return runResetPassword(rest)
	case commandMailWorker:
		return runMailWorker()
	default:
		return fmt.Errorf("unknown command %q (want %s, %s or %s)", command, commandServe, commandResetPassword, commandMailWorker)
	}
}

func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || len(args[0]) == 0 || args[0][0] == '-' {
		return commandServe, args
	}
	return args[0], args[1:]
}

func runServe() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer closeDatabase(database, logger)

	sender, closeSender, err := newResetSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()

	repositories := db.NewRepositories(database)
	authService := services.NewAuthService(repositories.Users, sender, services.AuthOptions{
		SecretKey:     []byte(cfg.SecretKey),
		SessionTTL:    cfg.Auth.TokenTTL,
		ResetMode:     cfg.Auth.ResetMode,
		PublicBaseURL: cfg.Auth.PublicBaseURL,
	}, time.Now, logger)
	reservationService := services.NewReservationService(
		repositories.Reservations,
		services.NewAllocator(cfg.Booking.RoomCount),
		cfg.Booking.LeadTime,
		cfg.Location(),
		time.Now,
		logger,
	)

	handler, err := api.NewHandler(authService, reservationService, api.Options{
		CookieSecure:   cfg.CookieSecure,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := newApp(handler, cfg.CookieSecure)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("roomdesk listening",
		"port", cfg.Port,
		"db_driver", cfg.Database.Driver,
		"tz", cfg.Location().String(),
		"rooms", cfg.Booking.RoomCount,
		"reset_mode", cfg.Auth.ResetMode,
		"env_file", cfg.EnvSource(),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler, cookieSecure bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "roomdesk",
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New())
	app.Use(csrf.New(csrfMiddlewareConfig(cookieSecure)))

	api.RegisterRoutes(app, handler)
	return app
}

func csrfMiddlewareConfig(cookieSecure bool) csrf.Config {
	return csrf.Config{
		KeyLookup:      "header:X-CSRF-Token",
		CookieName:     "roomdesk_csrf",
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		CookieSecure:   cookieSecure,
		ContextKey:     "csrf",
		// Header-authenticated clients never send the session cookie.
		Next: api.HasBearerToken,
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid csrf token"})
		},
	}
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func newResetSender(cfg *config.Config, logger *slog.Logger) (services.PasswordResetSender, func(), error) {
	if cfg.Mail.Transport != "amqp" {
		return mailer.NewLogSender(logger), func() {}, nil
	}

	publisher, err := mailer.DialAMQPPublisher(cfg.Mail.AMQPURL, cfg.Mail.Queue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("mail publisher init failed: %w", err)
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("mail publisher close failed", "error", err)
		}
	}, nil
}

func runResetPassword(args []string) error {
	flags := pflag.NewFlagSet(commandResetPassword, pflag.ContinueOnError)
	login := flags.String("login", "", "username or email of the account to reset")
	prompt := flags.Bool("prompt", false, "read the new password from the terminal instead of generating one")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer closeDatabase(database, logger)

	return cli.RunResetPasswordCommand(context.Background(), db.NewUserRepository(database), cli.ResetPasswordOptions{
		Login:  *login,
		Prompt: *prompt,
		Out:    os.Stdout,
	})
}

func runMailWorker() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Mail.SMTPReady(); err != nil {
		return err
	}

	deliverer, err := mailer.NewSMTPDeliverer(cfg.Mail.SMTPAddr, cfg.Mail.SMTPFrom, cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword)
	if err != nil {
		return err
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	return mailer.NewWorker(deliverer, logger).Run(sigCtx, cfg.Mail.AMQPURL, cfg.Mail.Queue)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func closeDatabase(database *gorm.DB, logger *slog.Logger) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("database close failed", "error", err)
	}
}
