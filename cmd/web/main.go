package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactdesk/backend/internal/common/clock"
	"github.com/contactdesk/backend/internal/common/config"
	commoncrypto "github.com/contactdesk/backend/internal/common/crypto"
	"github.com/contactdesk/backend/internal/common/db"
	commonhttp "github.com/contactdesk/backend/internal/common/http"
	"github.com/contactdesk/backend/internal/common/logger"
	srv "github.com/contactdesk/backend/internal/common/server"
	contactrepo "github.com/contactdesk/backend/internal/contact/repository"
	"github.com/contactdesk/backend/internal/forms"
	"github.com/contactdesk/backend/internal/session"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
	"github.com/contactdesk/backend/internal/web"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "web", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.LoadWebConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	users := userrepo.NewPgRepository(pool)
	contacts := contactrepo.NewPgRepository(pool)
	realClock := clock.NewRealClock()

	sessions := session.NewManager(users, cfg.SessionSecret, cfg.SecureCookies, realClock, log)

	handler := web.NewHandler(web.Deps{
		Users:       users,
		Contacts:    contacts,
		Forms:       forms.NewValidator(users),
		Sessions:    sessions,
		Hasher:      commoncrypto.NewBcryptHasher(),
		IDGenerator: commoncrypto.NewUUIDGenerator(),
		CSRF:        commonhttp.NewCSRFGuard(cfg.SecureCookies),
		Clock:       realClock,
		Log:         log,
		Timeout:     cfg.RequestTimeout,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	baseHandler := commonhttp.BuildBaseHandler(log, mux)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, baseHandler)

	srv.StartWithGracefulShutdown(server, log, "web")
}
