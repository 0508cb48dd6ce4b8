package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresmz/walletcore/internal/db"
	"github.com/andresmz/walletcore/internal/handlers"
	"github.com/andresmz/walletcore/internal/logger"
	"github.com/andresmz/walletcore/internal/repository"
	"github.com/andresmz/walletcore/internal/repository/postgres"
	redisrepo "github.com/andresmz/walletcore/internal/repository/redis"
	"github.com/andresmz/walletcore/internal/service/notify"
	"github.com/andresmz/walletcore/internal/service/token"
	"github.com/andresmz/walletcore/internal/service/wallet"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Sessions live in postgres unless a redis address is configured
	var sessions repository.SessionRepo = postgres.NewSessionRepo(pool)
	if c.RedisAddr != "" {
		sessions = redisrepo.NewSessionRepo(redisrepo.NewClient(c.RedisAddr, c.RedisPassword, 0))
		l.Info("using redis session store", "addr", c.RedisAddr)
	}

	// Tokens go by email when SMTP is configured, to the log otherwise
	var dispatcher notify.Dispatcher = &notify.LogDispatcher{Logger: l}
	if c.SMTPHost != "" {
		dispatcher = notify.NewSMTPDispatcher(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.SMTPFrom,
		})
	}

	// Initialize the payment engine and HTTP surface
	walletService := wallet.NewService(storage, sessions, token.Numeric{}, dispatcher, l)
	mux := handlers.NewRouter(walletService, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
