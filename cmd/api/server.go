package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slotwise/cmd/internal/audit"
	"slotwise/cmd/internal/config"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/domain/sqlite"
	"slotwise/cmd/internal/domain/sqlite/repository"
	awsclient "slotwise/cmd/internal/integration/aws"
	cognitoclient "slotwise/cmd/internal/integration/aws/cognito"
	"slotwise/cmd/internal/integration/aws/ses"
	"slotwise/cmd/internal/integration/devidp"
	"slotwise/cmd/internal/reminder"
	"slotwise/cmd/internal/routes"
	"slotwise/cmd/internal/scheduling"
	"slotwise/cmd/internal/service"
	"slotwise/cmd/internal/utils"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 10 * time.Second
	devTokenTTL     = 12 * time.Hour
)

func serve(c *cli.Context) error {
	cfg, validate, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init SQLite
	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		return err
	}

	idp, tokens, err := identity(ctx, cfg, awsCfg)
	if err != nil {
		return err
	}

	// Getting repositories
	userRepo := repository.NewCachedUserRepository(db, cfg.UserCacheTTL)
	apptRepo := repository.NewAppointmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	auditSink := audit.NewSink(auditRepo, audit.Options{})

	// Scheduling heuristics
	metrics := scheduling.DefaultMetrics()
	planner := scheduling.NewPlanner(apptRepo, scheduling.Config{Location: cfg.Location, Metrics: metrics})
	predictor := scheduling.NewHistoryPredictor(apptRepo, auditSink, nil, metrics)

	// Getting services
	userService := service.NewUserService(userRepo, apptRepo, auditSink, validate, idp)
	apptService := service.NewAppointmentService(apptRepo, userRepo, reminderRepo, auditSink, validate)
	schedService := service.NewSchedulingService(userRepo, planner, predictor, validate)
	adminService := service.NewAdminService(userRepo, auditRepo, validate)

	notifiers, err := reminderNotifiers(cfg, awsCfg)
	if err != nil {
		return err
	}
	dispatcher := reminder.NewDispatcher(reminderRepo, notifiers, reminder.Options{Registerer: prometheus.DefaultRegisterer})
	if err := dispatcher.Start(cfg.ReminderSchedule); err != nil {
		return err
	}

	router := &routes.Router{
		Users:        routes.NewUserDefault(userService),
		Appointments: routes.NewAppointmentDefault(apptService),
		Scheduling:   routes.NewSchedulingDefault(schedService),
		Admin:        routes.NewAdminDefault(adminService),
		Tokens:       tokens,
		Roles:        userRepo,
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.GommonLevel())
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS))))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.Register(e)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down http server: %v", err)
	}
	dispatcher.Stop()
	if err := auditSink.Close(shutdownCtx); err != nil {
		log.Errorf("failed to flush audit entries: %v", err)
	}
	return nil
}

// loadAWS is only needed for Cognito or SES. Local setups run without credentials.
func loadAWS(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if cfg.AuthMode != config.AuthModeCognito && cfg.EmailSender == "" {
		return aws.Config{}, nil
	}
	awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWSRegion)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awsCfg, nil
}

func identity(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (service.IdentityProvider, utils.TokenParser, error) {
	if cfg.AuthMode == config.AuthModeHMAC {
		log.Warn("AUTH_MODE=hmac: using the in-memory identity provider, do not run this in production")
		secret := []byte(cfg.JWTSecret)
		return devidp.New(secret, devTokenTTL), utils.NewHMACParser(secret), nil
	}

	// Cognito client
	cogClient, err := cognitoclient.InitCognitoClient(awsCfg, cognitoclient.Settings{
		ClientID:     cfg.CognitoClientID,
		ClientSecret: cfg.CognitoClientSecret,
		UserPoolID:   cfg.CognitoUserPoolID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize cognito client: %w", err)
	}

	jwks, err := cognitoclient.NewJWKS(ctx, cfg.AWSRegion, cfg.CognitoUserPoolID)
	if err != nil {
		return nil, nil, err
	}
	parser := utils.NewJWTParser(jwks.KeyfuncCtx, []string{jwt.SigningMethodRS256.Alg()}, jwt.WithIssuer(jwks.Issuer()))
	return cogClient, parser, nil
}

func reminderNotifiers(cfg *config.Config, awsCfg aws.Config) (map[entity.Channel]reminder.Notifier, error) {
	notifiers := map[entity.Channel]reminder.Notifier{
		entity.ChannelEmail: reminder.LogNotifier{},
		entity.ChannelPush:  reminder.LogNotifier{},
	}

	if cfg.EmailSender != "" {
		mailer, err := ses.NewMailer(awsCfg, cfg.EmailSender)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ses mailer: %w", err)
		}
		notifiers[entity.ChannelEmail] = reminder.NewEmailNotifier(mailer, cfg.Location)
	}
	if cfg.PushWebhookURL != "" {
		notifiers[entity.ChannelPush] = reminder.NewWebhookNotifier(cfg.PushWebhookURL)
	}
	return notifiers, nil
}
