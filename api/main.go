package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "1.0.0"

type application struct {
	config   config
	logger   *slog.Logger
	storage  dataStore
	tokens   *tokenService
	notifier notifier
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	tokens, err := newTokenService(cfg.JWT)
	if err != nil {
		return err
	}
	mailSender, err := newMailer(cfg.SMTP, cfg.BaseURL)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("established a connection with database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = migrate(ctx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	app := &application{
		config:   cfg,
		logger:   logger,
		storage:  newStorage(db),
		tokens:   tokens,
		notifier: mailSender,
	}
	return app.serve()
}

func (app *application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		s := <-quit
		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return err
	}
	app.logger.Info("stopped server", "addr", srv.Addr)
	return nil
}
