// The web binary serves the quiz platform's relying-party auth core: the
// OIDC sign-in flow against the IdP, anonymous participant sign-in, and the
// policy-guarded role areas.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cohort/internal/platform/config"
	"cohort/internal/platform/httpserver"
	"cohort/internal/platform/logger"
	"cohort/internal/platform/middleware"
	"cohort/internal/web/approle"
	"cohort/internal/web/handler"
	webmetrics "cohort/internal/web/metrics"
	"cohort/internal/web/participant"
	"cohort/internal/web/policy"
	"cohort/internal/web/rp"
	"cohort/internal/web/session"
	audit "cohort/pkg/platform/audit"
	kafkasink "cohort/pkg/platform/audit/sinks/kafka"
	auditmemory "cohort/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.WebFromEnv()
	log := logger.New("web")

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to build kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink), audit.WithAsyncBuffer(256))
	}
	auditPub := audit.NewPublisher(auditmemory.NewInMemoryStore(), auditOpts...)
	defer auditPub.Close()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	var roleStore approle.Store = approle.NewInMemoryStore()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(startCtx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		pgStore := approle.NewPostgres(db)
		if err := pgStore.EnsureSchema(startCtx); err != nil {
			log.Error("failed to ensure role schema", "error", err)
			os.Exit(1)
		}
		roleStore = pgStore
		log.Info("using postgres role store")
	}

	roles := approle.NewResolver(roleStore, log)
	if cfg.Mode == config.ModeDev {
		if err := approle.SeedGrants(startCtx, roles, cfg.SeedAdminSubject, cfg.SeedHostSubject); err != nil {
			log.Error("failed to seed role grants", "error", err)
			os.Exit(1)
		}
	}

	metrics := webmetrics.New()
	sessions := session.NewManager(cfg.SessionSecret, "cohort-web", cfg.SessionTTL, cfg.Mode == config.ModeProduction)
	oidcClient := rp.NewClient(rp.Config{
		Authority:    cfg.Authority,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
	}, log)
	participants := participant.NewService(auditPub, metrics, log)
	guard := policy.NewGuard(sessions, auditPub, metrics, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestContext)
	handler.New(oidcClient, sessions, roles, participants, guard, auditPub, metrics, log, cfg.PostLogoutRedirectURL).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>Cohort</h1></body></html>"))
	})

	srv := httpserver.New(cfg.Addr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("web listening", "addr", cfg.Addr, "authority", cfg.Authority)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("web exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("web stopped")
}
