package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/contactdesk/backend/internal/common/config"
	commoncrypto "github.com/contactdesk/backend/internal/common/crypto"
	"github.com/contactdesk/backend/internal/common/db"
	"github.com/contactdesk/backend/internal/common/logger"
	userdomain "github.com/contactdesk/backend/internal/user/domain"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
	"github.com/contactdesk/backend/migrations"
)

const usage = `usage: admin <command>

commands:
  create-schema   apply pending schema migrations
  create-user     create a user from USERNAME, EMAIL and PASSWORD env vars
`

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "admin", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		os.Stderr.WriteString(usage)
		os.Exit(2)
	}

	cfg, err := config.LoadAdminConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "create-schema":
		if err := createSchema(cfg.DatabaseURL); err != nil {
			log.Fatalf("create-schema failed: %v", err)
		}
		log.Info("schema is up to date")
	case "create-user":
		if err := createUser(log, cfg.DatabaseURL); err != nil {
			log.Fatalf("create-user failed: %v", err)
		}
	default:
		os.Stderr.WriteString(usage)
		os.Exit(2)
	}
}

func createSchema(databaseURL string) error {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func createUser(log *logger.Logger, databaseURL string) error {
	username := os.Getenv("USERNAME")
	email := os.Getenv("EMAIL")
	password := os.Getenv("PASSWORD")
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("USERNAME, EMAIL and PASSWORD must all be set")
	}

	pool := db.NewPool(log, databaseURL)
	defer pool.Close()

	users := userrepo.NewPgRepository(pool)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return fmt.Errorf("user %q already exists", username)
	case !errors.Is(err, userrepo.ErrUserNotFound):
		return fmt.Errorf("check existing user: %w", err)
	}

	hash, err := commoncrypto.NewBcryptHasher().Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := commoncrypto.NewUUIDGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate id: %w", err)
	}

	user := userdomain.User{
		ID:           userdomain.ID(id),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := users.Create(ctx, user); err != nil {
		return err
	}

	log.Infof("created user %s", username)
	return nil
}
