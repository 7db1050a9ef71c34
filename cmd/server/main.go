package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/foodbook-server/auth"
	"github.com/jrsteele09/foodbook-server/authz"
	"github.com/jrsteele09/foodbook-server/internal/config"
	"github.com/jrsteele09/foodbook-server/server"
	"github.com/jrsteele09/foodbook-server/token"
	"github.com/jrsteele09/foodbook-server/token/refresh"
	"github.com/jrsteele09/foodbook-server/users"
	"github.com/jrsteele09/foodbook-server/users/redisrepo"
	fakeuserrepo "github.com/jrsteele09/foodbook-server/users/repofake"
)

const ledgerCleanupInterval = 10 * time.Minute

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %s\n", err)
		os.Exit(1)
	}
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	config.NewLogger(c)
	if err := config.Validate(c); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo, ledger, closeStores, err := newStores(ctx, c)
	if err != nil {
		return err
	}
	defer closeStores()

	handler, err := newHandler(c, userRepo, ledger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// newStores picks Redis when REDIS_URL is set and in-memory stores otherwise.
func newStores(ctx context.Context, c config.Config) (users.UserRepo, refresh.Ledger, func(), error) {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-memory stores")
		ledger := refresh.NewMemoryLedger()
		go ledger.RunCleanup(ctx, ledgerCleanupInterval)
		return fakeuserrepo.NewFakeUserRepo(), ledger, func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("connected to redis")

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Err(err).Msg("redis close")
		}
	}
	return redisrepo.New(client), refresh.NewRedisLedger(client), closeFn, nil
}

func newHandler(c config.Config, userRepo users.UserRepo, ledger refresh.Ledger) (http.Handler, error) {
	accessExpiry, err := c.GetAccessTokenExpiry()
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := c.GetRefreshTokenExpiry()
	if err != nil {
		return nil, err
	}
	keys, err := token.NewKeys(c.GetAccessSecret(), c.GetRefreshSecret(), config.MinSecretLength)
	if err != nil {
		return nil, err
	}
	opts := []token.Option{
		token.WithExpiry(accessExpiry, refreshExpiry),
		token.WithIssuer(c.GetIssuer()),
	}

	verifier := token.NewVerifier(keys, opts...)
	gate := authz.NewGate(userRepo)
	service, err := auth.NewService(auth.Deps{
		Users:    userRepo,
		Issuer:   token.NewIssuer(keys, opts...),
		Verifier: verifier,
		Gate:     gate,
		Ledger:   ledger,
	})
	if err != nil {
		return nil, err
	}
	srv, err := server.New(c, server.Deps{Auth: service, Verifier: verifier, Gate: gate})
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
