package main

import (
	"flag"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

func main() {
	force := flag.Int("force", -1, "mark the schema as this version without running migrations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "dev")
		boot.Fatal().Err(err).Msg("config load error")
	}
	log := logging.New(cfg.LogLevel, cfg.Env)

	if *force >= 0 {
		if err := db.ForceVersion(cfg.PostgresDSN, *force); err != nil {
			log.Fatal().Err(err).Int("version", *force).Msg("force version failed")
		}
		log.Info().Int("version", *force).Msg("schema version forced")
		return
	}

	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("schema is up to date")
}
