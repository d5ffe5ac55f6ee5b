package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/pkg/logging"
)

// Usage: migrate            apply pending migrations
//        migrate force <v>  force the schema version after a failed run
func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))

	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	force := -1
	if len(os.Args) >= 3 && os.Args[1] == "force" {
		v, err := strconv.Atoi(os.Args[2])
		if err != nil || v < 0 {
			logger.Fatal().Str("version", os.Args[2]).Msg("invalid version")
		}
		force = v
	}

	if err := db.Migrate(dsn, force); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	if force >= 0 {
		logger.Info().Int("version", force).Msg("forced schema version")
		return
	}
	logger.Info().Msg("migrations complete")
}
