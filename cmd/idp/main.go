// The idp binary serves the development-grade OpenID Connect identity
// provider: local credential login, the authorization-code + PKCE flow,
// token issuance, and discovery.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"cohort/internal/idp/handler"
	idpmetrics "cohort/internal/idp/metrics"
	"cohort/internal/idp/service"
	authcodestore "cohort/internal/idp/store/authcode"
	clientstore "cohort/internal/idp/store/client"
	lockoutstore "cohort/internal/idp/store/lockout"
	userstore "cohort/internal/idp/store/user"
	"cohort/internal/idp/session"
	"cohort/internal/idp/token"
	"cohort/internal/platform/config"
	"cohort/internal/platform/httpserver"
	"cohort/internal/platform/logger"
	"cohort/internal/platform/middleware"
	platformredis "cohort/internal/platform/redis"
	audit "cohort/pkg/platform/audit"
	kafkasink "cohort/pkg/platform/audit/sinks/kafka"
	auditmemory "cohort/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.IdPFromEnv()
	log := logger.New("idp")

	signer, err := token.NewSigner(cfg.Issuer, cfg.SigningKeyPEM, cfg.Mode == config.ModeProduction)
	if err != nil {
		log.Error("failed to build token signer", "error", err)
		os.Exit(1)
	}

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

	var codes service.AuthCodeStore = authcodestore.New()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		codes = authcodestore.NewRedis(redisClient.Client)
		log.Info("using redis authorization code store")
	}

	svc := service.NewService(
		service.Config{
			TenantID:            cfg.TenantID,
			AuthCodeTTL:         cfg.AuthCodeTTL,
			TokenTTL:            cfg.TokenTTL,
			LockoutEnabled:      cfg.LockoutEnabled,
			LockoutThreshold:    cfg.LockoutThreshold,
			LockoutWindow:       cfg.LockoutWindow,
			RevokeCodesOnLogout: cfg.RevokeCodesOnLogout,
		},
		userstore.New(),
		clientstore.New(),
		codes,
		lockoutstore.New(),
		signer,
		auditPub,
		idpmetrics.New(),
		log,
	)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSeed()
	if err := svc.Seed(seedCtx, cfg); err != nil {
		log.Error("failed to seed idp state", "error", err)
		os.Exit(1)
	}

	sessions := session.NewManager(cfg.SessionSecret, cfg.Issuer, cfg.SessionTTL, cfg.Mode == config.ModeProduction)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestContext)
	handler.New(svc, sessions, signer, cfg.Issuer, log).Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>Cohort IdP</h1></body></html>"))
	})

	srv := httpserver.New(cfg.Addr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("idp listening", "addr", cfg.Addr, "issuer", cfg.Issuer)
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
		log.Error("idp exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("idp stopped")
}
