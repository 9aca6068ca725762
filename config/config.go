package config

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	DBDriver string // "mysql" or "sqlite"
	DBDSN    string
	HTTPPort string
	BaseURL  string
	AMQPURL  string // empty disables the broker bridge

	FeedInterval         time.Duration
	KitchenTick          time.Duration
	KitchenWarningAfter  time.Duration
	KitchenCriticalAfter time.Duration
}

// Load reads configuration from the environment. The .env file is loaded by
// main before this runs.
func Load() Config {
	return Config{
		DBDriver: getenv("DB_DRIVER", "sqlite"),
		DBDSN:    getenv("DB_DSN", "comandero.db"),
		HTTPPort: getenv("PORT", "8080"),
		BaseURL:  getenv("BASE_URL", "http://localhost:8080"),
		AMQPURL:  os.Getenv("AMQP_URL"),

		FeedInterval:         getduration("FEED_POLL_INTERVAL", time.Second),
		KitchenTick:          getduration("KITCHEN_TICK", 30*time.Second),
		KitchenWarningAfter:  getduration("KITCHEN_WARNING_AFTER", 10*time.Minute),
		KitchenCriticalAfter: getduration("KITCHEN_CRITICAL_AFTER", 20*time.Minute),
	}
}

// OpenDB opens the configured database.
func OpenDB(cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
