// Command gateway runs the property registry HTTP gateway: account
// registration and login, session-guarded property operations, and mediation
// to the ownership ledger node.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/chain"
	"github.com/propchain/registry_gateway/internal/config"
	"github.com/propchain/registry_gateway/internal/credentials"
	"github.com/propchain/registry_gateway/internal/httpapi"
	"github.com/propchain/registry_gateway/internal/metrics"
	"github.com/propchain/registry_gateway/internal/middleware"
	"github.com/propchain/registry_gateway/internal/registry"
	"github.com/propchain/registry_gateway/internal/session"
	"github.com/propchain/registry_gateway/internal/storage/memory"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "registry-gateway").Logger()

	cfg, err := config.Load(config.DefaultLedgerFile)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid; refusing to start")
	}

	authority, err := session.New([]byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("session authority")
	}

	client, err := chain.NewClient(chain.Config{
		RPCURL:  cfg.Ledger.RPCURL,
		Timeout: cfg.Ledger.RPCTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("ledger client")
	}

	gateway, err := registry.New(client, registry.Config{
		ContractHash:       cfg.Ledger.ContractHash,
		OperationalAccount: cfg.Ledger.OperationalAccount,
		PollInterval:       cfg.Ledger.PollInterval,
		WaitTimeout:        cfg.Ledger.WaitTimeout,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("registry gateway")
	}

	// Credentials live in process memory only and are lost on restart; the
	// store interface exists so a persistent backend can replace it.
	store := memory.New()
	creds := credentials.New(store, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The router mounts the limiter itself: public routes throttle by IP,
	// protected routes by authenticated username.
	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		limiter.StartCleanup(ctx, time.Minute)
	}
	router := httpapi.NewRouter(creds, authority, gateway, limiter, log)

	var handler http.Handler = router
	handler = middleware.NewRequestLogger(log).Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins())
	handler = cors.Handler(handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
