package config

import (
	"os"
	"time"
)

// AvailabilityConfig controls the Redis cache in front of the occupied
// seat sets.  The cache is best effort: a short TTL bounds how stale a
// seat map can get, and commits invalidate the session's entry
// synchronously.
type AvailabilityConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadAvailabilityConfig reads AVAIL_* environment variables with
// defaults suitable for a single deployment.
func LoadAvailabilityConfig() AvailabilityConfig {
	return AvailabilityConfig{
		Enabled: getenv("AVAIL_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("AVAIL_CACHE_TTL", "3s")),
		Prefix:  getenv("AVAIL_CACHE_PREFIX", "avail"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
