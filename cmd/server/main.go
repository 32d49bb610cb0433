package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendervault/tendervault/internal/api"
	"github.com/tendervault/tendervault/internal/audit"
	"github.com/tendervault/tendervault/internal/blob"
	"github.com/tendervault/tendervault/internal/config"
	"github.com/tendervault/tendervault/internal/identity"
	"github.com/tendervault/tendervault/internal/ingest"
	"github.com/tendervault/tendervault/internal/notify"
	"github.com/tendervault/tendervault/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load(".")
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	tenders := store.NewTenderStore(db)
	bids := store.NewBidStore(db)
	auditStore := store.NewAuditStore(db)
	sink := audit.NewSink(auditStore, log)

	var mailer notify.Mailer
	if cfg.SMTPAddr != "" {
		mailer = &notify.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom, Log: log}
	} else {
		mailer = &notify.LogMailer{Log: log}
	}

	processor := ingest.NewProcessor(bids, sink, mailer, log)

	presigner := blob.NewPresigner(cfg.PresignSecret, cfg.ExternalURL)
	blobStore := blob.NewPGStore(db, cfg.BidsBucket)

	// Completed uploads feed straight into the confirmation pipeline; the
	// same pipeline also serves externally delivered batches below.
	blobHandler := blob.NewHandler(blobStore, presigner, cfg.BidsBucket, log, func(r *http.Request, bucket string, v blob.Version) {
		processor.Process(r.Context(), []ingest.Event{{
			Bucket:    bucket,
			Key:       v.Key,
			VersionID: v.VersionID,
			Size:      v.Size,
		}})
	})
	notifications := ingest.NewHandler(processor, cfg.NotifySecret)

	verifier := identity.NewVerifier(cfg.JWTSecret)
	server := api.NewServer(tenders, bids, blobStore, presigner, auditStore, sink, mailer, verifier, log)

	r := chi.NewRouter()
	r.Use(api.Metrics)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	blobHandler.Routes(r)
	r.Post("/internal/notifications", notifications.HandleNotifications)
	r.Mount("/", server.Routes())

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("listening", "addr", cfg.ServerAddress)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
