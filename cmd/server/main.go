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
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	httpadapter "certflow/internal/adapters/http"
	"certflow/internal/adapters/objectstore"
	pg "certflow/internal/adapters/postgres"
	"certflow/internal/auth"
	"certflow/internal/config"
	"certflow/internal/services/dossier"
	"certflow/internal/services/roles"
	"certflow/internal/services/workflow"
	"certflow/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := newLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrate(cfg.DatabaseURL); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	files, err := objectstore.NewDir(cfg.DossierDir)
	if err != nil {
		log.Fatal("dossier store failed", zap.Error(err))
	}

	authSvc := auth.New(db, []byte(cfg.JWTSecret), cfg.TokenTTL)
	roleSvc := roles.New(db, log)
	workflowSvc := workflow.New(workflow.Deps{
		Roles:         roleSvc,
		Applications:  db,
		Audits:        db,
		Findings:      db,
		Notifications: db,
		Checklist:     db,
		Log:           log,
	})
	dossierSvc := dossier.New(roleSvc, db, db, files, log)

	srv := httpadapter.New(authSvc, roleSvc, workflowSvc, dossierSvc, log)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.Stringer("signal", sig))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown incomplete", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
