package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool             `help:"Enable debug logging." env:"TEMPO_DEBUG"`
		Dev     bool             `help:"Human readable console logs." env:"TEMPO_DEV"`
		Version kong.VersionFlag `help:"Print the version and exit."`

		Serve   ServeCmd   `cmd:"" default:"withargs" help:"Start the HTTP and live channel server."`
		Migrate MigrateCmd `cmd:"" help:"Apply database migrations and exit."`
	}
)

// Globals are the flags shared by every command
type Globals struct {
	Debug   bool
	Version string
}

func main() {
	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tempo"),
		kong.Description("Live-synchronised time tracking server."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	setupLogger(cli.Debug, cli.Dev)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded")
	}

	err := cmd.Run(&Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
