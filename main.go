package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"campusrx/m/domain"
	"campusrx/m/internal/api"
	"campusrx/m/internal/auth"
	"campusrx/m/internal/config"
	"campusrx/m/internal/database"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
	"campusrx/m/internal/migrations"
	"campusrx/m/internal/seed"
	"campusrx/m/internal/session"
	"campusrx/m/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "campusrx",
	Short:         "Campus pharmacy locator backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	seedFile      string
	adminEmail    string
	adminPassword string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (applies pending migrations first)",
		RunE:  runServe,
	}
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status|redo|version] [args...]",
		Short: "Run a schema migration command",
		RunE:  runMigrate,
	}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the medicine catalogue from CSV",
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVar(&seedFile, "file", "", "CSV file to import (default: bundled catalogue)")

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	adminCmd.Flags().StringVar(&adminPassword, "password", "", "administrator password (empty for link-only sign in)")
	_ = adminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, adminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *sqlx.DB
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		ServiceName: "campusrx",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		File:        cfg.App.LogFile,
	})
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

// adminFacade acts with full rights for the command line tools.
func (a *app) adminFacade() *facade.Facade {
	store := datastore.NewSQLStore(a.db)
	return facade.New(store, session.Static(session.Principal{Role: domain.RoleAdmin}))
}

func (a *app) authService(ctx context.Context, f *facade.Facade) (*auth.Service, error) {
	var links auth.LinkStore = auth.NewMemoryLinkStore()
	if a.cfg.Redis.URL != "" {
		redisLinks, err := auth.NewRedisLinkStore(ctx, a.cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		links = redisLinks
	} else {
		a.log.Warn(ctx, "redis is not configured; login links are kept in process memory")
	}

	var mailer auth.Mailer = auth.LogMailer{Log: a.log}
	if a.cfg.SMTP.Host != "" {
		mailer = auth.NewSMTPMailer(a.cfg.SMTP)
	}
	return auth.NewService(f, a.cfg.JWT, a.cfg.Links, links, mailer, a.log), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	if err := migrations.Up(ctx, a.db, a.cfg.DB.Driver); err != nil {
		return err
	}

	metrics := facade.NewMetrics(prometheus.DefaultRegisterer)
	store := datastore.NewSQLStore(a.db)
	base := facade.New(store, nil, facade.WithMetrics(metrics))
	authSvc, err := a.authService(ctx, base.As(session.Static(session.Principal{Role: domain.RoleAdmin})))
	if err != nil {
		return err
	}
	bucket, err := storage.NewLocalBucket(a.cfg.Storage.Dir, a.cfg.Storage.BaseURL)
	if err != nil {
		return err
	}

	handler := api.New(api.Deps{
		Facade:      base,
		Auth:        authSvc,
		Bucket:      bucket,
		Log:         a.log,
		Gatherer:    prometheus.DefaultGatherer,
		FilesDir:    bucket.Dir(),
		CORSOrigins: a.cfg.App.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info(a.log.WithField(ctx, "addr", srv.Addr), "campusrx server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	if err := migrations.Run(ctx, a.db, a.cfg.DB.Driver, command, args...); err != nil {
		return err
	}
	a.log.Info(a.log.WithField(ctx, "command", command), "migration finished")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	if err := migrations.Up(ctx, a.db, a.cfg.DB.Driver); err != nil {
		return err
	}
	res, err := seed.LoadMedicinesFile(ctx, a.adminFacade(), seedFile, a.log)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d, failed %d\n", res.Inserted, res.Skipped, res.Failed)
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	if err := migrations.Up(ctx, a.db, a.cfg.DB.Driver); err != nil {
		return err
	}
	authSvc, err := a.authService(ctx, a.adminFacade())
	if err != nil {
		return err
	}
	user, err := authSvc.CreateUser(ctx, domain.User{Email: adminEmail, Role: domain.RoleAdmin, DisplayName: "Administrator"}, adminPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
