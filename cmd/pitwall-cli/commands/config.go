package commands

import (
	"os"

	"pitwall-backend/lib/configutil"
	"pitwall-backend/lib/ergast"
	"pitwall-backend/lib/serviceutil"
	"pitwall-backend/services/warehouse"
)

type Config struct {
	Ergast      ergast.Config       `json:"ergast"`
	Years       warehouse.YearRange `json:"years"`
	RawDir      string              `json:"raw_dir"`
	Database    string              `json:"database"`
	HeldoutYear int                 `json:"heldout_year"`
}

// readConfig loads config.json5 and fills in defaults for anything
// unset. A missing config file is fine, everything has a default.
func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}

	defaults := ergast.DefaultConfig()
	if cfg.Ergast.BaseUrl == "" {
		cfg.Ergast.BaseUrl = defaults.BaseUrl
	}
	if cfg.Ergast.TimeoutSec == 0 {
		cfg.Ergast.TimeoutSec = defaults.TimeoutSec
	}
	if cfg.Ergast.MaxRetries == 0 {
		cfg.Ergast.MaxRetries = defaults.MaxRetries
	}
	if cfg.Ergast.BackoffSec == 0 {
		cfg.Ergast.BackoffSec = defaults.BackoffSec
	}
	if cfg.Ergast.PageLimit == 0 {
		cfg.Ergast.PageLimit = defaults.PageLimit
	}
	if cfg.Years == (warehouse.YearRange{}) {
		cfg.Years = warehouse.YearRange{Start: 2010, End: 2025}
	}
	if cfg.RawDir == "" {
		cfg.RawDir = "data/raw/ergast"
	}
	if cfg.Database == "" {
		cfg.Database = "warehouse.db"
	}
	// the most recent season in range is the held-out test split
	// unless overridden
	if cfg.HeldoutYear == 0 {
		cfg.HeldoutYear = cfg.Years.End
	}

	return cfg
}
