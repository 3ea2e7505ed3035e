package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/telemetry"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServeCmd runs the HTTP endpoints, the live channel and the periodic broadcast
type ServeCmd struct {
	Listen  string `help:"HTTP listen address." default:":8080" env:"TEMPO_LISTEN"`
	Config  string `help:"Path to a YAML file with tunables." type:"path" env:"TEMPO_CONFIG"`
	Store   string `help:"Storage backend." default:"memory" enum:"memory,postgres" env:"TEMPO_STORE"`
	Migrate bool   `help:"Apply database migrations on startup (postgres store)." env:"TEMPO_MIGRATE"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.InitMeterProvider(ctx, "tempo", globals.Version, config.Telemetry.ExportInterval)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics, continuing without them")
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	var stores Stores
	switch c.Store {
	case "postgres":
		pool, err := setupDatabase(ctx, c.Migrate)
		if err != nil {
			return err
		}
		defer pool.Close()
		stores = postgresStores(pool)
	default:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		stores = memoryStores()
	}

	services := setupServices(stores, config, clockwork.NewRealClock())
	server := setupServer(c.Listen, services, config)

	liveSyncDone := make(chan struct{})
	go func() {
		defer close(liveSyncDone)
		if err := services.LiveSync.Start(ctx); err != nil {
			log.Error().Err(err).Msg("live sync service failed")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("store", c.Store).Str("version", globals.Version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			stop()
			<-liveSyncDone
			return err
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	<-liveSyncDone

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown failed")
	}

	log.Info().Msg("server stopped")
	return nil
}

func setupServer(addr string, services *Services, config *Config) *http.Server {
	mux := http.NewServeMux()

	// Register services
	services.Web.RegisterRoutes(mux)
	services.LiveSync.RegisterRoutes(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(buildHandler(mux, services, config), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024,
	}
}

// buildHandler puts API routes behind CORS and everything else behind cross-origin
// protection, then resolves the session cookie for all of them.
func buildHandler(mux *http.ServeMux, services *Services, config *Config) http.Handler {
	api := withCORS(config.CORS.AllowedOrigins, mux)
	pages := csrf.New().Handler(mux)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIRoute(r.URL.Path) {
			api.ServeHTTP(w, r)
			return
		}
		pages.ServeHTTP(w, r)
	})

	return services.Resolver.Middleware(handler)
}

func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}
