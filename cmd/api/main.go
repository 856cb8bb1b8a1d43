package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slotwise/cmd/internal/config"
	"slotwise/cmd/internal/domain/entity"
	"slotwise/cmd/internal/domain/sqlite"
	"slotwise/cmd/internal/domain/sqlite/repository"
	"slotwise/cmd/internal/service"
	"slotwise/cmd/internal/utils"
	"slotwise/cmd/internal/utils/validators"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "slotwise",
		Usage:  "appointment scheduling API",
		Before: loadEnv,
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the reminder dispatcher",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "grant-role",
				Usage: "set the role of an existing user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: string(entity.RoleAdmin)},
				},
				Action: grantRole,
			},
			{
				Name:  "dev-token",
				Usage: "sign a bearer token for a user (hmac auth mode only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 12 * time.Hour},
				},
				Action: devToken,
			},
		},
	}
}

// loadEnv picks up a .env file when there is one.
func loadEnv(*cli.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validators.Register(validate)
	return validate
}

func loadConfig() (*config.Config, *validator.Validate, error) {
	validate := newValidator()
	cfg, err := config.Load(validate)
	if err != nil {
		return nil, nil, err
	}
	log.SetLevel(cfg.GommonLevel())
	return cfg, validate, nil
}

func migrate(*cli.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	// Init runs the migrations
	if _, err := sqlite.Init(cfg.DatabasePath); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Infof("database %s is up to date", cfg.DatabasePath)
	return nil
}

func grantRole(c *cli.Context) error {
	cfg, validate, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	admin := service.NewAdminService(repository.NewUserRepository(db), repository.NewAuditRepository(db), validate)
	email, role := c.String("email"), entity.Role(c.String("role"))
	if apierr := admin.GrantRole(c.Context, email, role); apierr != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", role, email, apierr)
	}
	log.Infof("%s is now %s", email, role)
	return nil
}

func devToken(c *cli.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AuthMode != config.AuthModeHMAC {
		return errors.New("dev-token needs AUTH_MODE=hmac")
	}

	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	user, err := repository.NewUserRepository(db).FindByEmail(c.String("email"))
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no user with email %s", c.String("email"))
	}

	token, err := utils.SignHMACToken([]byte(cfg.JWTSecret), user.SubUUID, user.Email, c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}
