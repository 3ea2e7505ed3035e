package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/auth"
	"github.com/mcdev12/tempo/go/internal/livesync"
	"github.com/mcdev12/tempo/go/internal/sessions"
	"github.com/mcdev12/tempo/go/internal/timers"
	"github.com/mcdev12/tempo/go/internal/users"
	"github.com/mcdev12/tempo/go/internal/web"
)

// Stores are the storage backends behind the apps
type Stores struct {
	Users    users.UsersRepository
	Sessions sessions.Store
	Timers   timers.TimersRepository
}

func memoryStores() Stores {
	return Stores{
		Users:    users.NewMemoryStore(),
		Sessions: sessions.NewMemoryStore(),
		Timers:   timers.NewMemoryStore(),
	}
}

func postgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Users:    users.NewRepository(pool),
		Sessions: sessions.NewRepository(pool),
		Timers:   timers.NewRepository(pool),
	}
}

type Services struct {
	Users    *users.App
	Sessions *sessions.Manager
	Resolver *auth.Resolver
	Timers   *timers.App
	LiveSync *livesync.Service
	Web      *web.Handler
}

func setupServices(stores Stores, config *Config, clock clockwork.Clock) *Services {
	// Wire up dependency injection chain
	// Store → App → Handler / Service

	userApp := users.NewApp(stores.Users, users.NewBcryptHasher())
	sessionManager := sessions.NewManager(stores.Sessions)
	resolver := auth.NewResolver(stores.Sessions, userApp)
	timerApp := timers.NewApp(stores.Timers, clock)

	liveSync := livesync.NewService(config.liveSyncConfig(), resolver, timerApp, clock)
	webHandler := web.NewHandler(userApp, sessionManager, config.cookieConfig())

	return &Services{
		Users:    userApp,
		Sessions: sessionManager,
		Resolver: resolver,
		Timers:   timerApp,
		LiveSync: liveSync,
		Web:      webHandler,
	}
}
