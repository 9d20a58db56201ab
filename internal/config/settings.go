package config

import (
	"os"
	"strings"
)

// Settings is everything the CLI needs to build a session. Values come from
// the environment; the app loads a .env file before FromEnv runs.
type Settings struct {
	Host       string // target wiki host
	ScriptPath string // index.php path prefix
	GeoIPDB    string // optional GeoLite2 country database
	Debug      bool
}

const (
	defaultHost       = "meta.wikimedia.org"
	defaultScriptPath = "/w"
)

func FromEnv() Settings {
	return Settings{
		Host:       envOr("WIKI_HOST", defaultHost),
		ScriptPath: envOr("WIKI_SCRIPT_PATH", defaultScriptPath),
		GeoIPDB:    os.Getenv("GEOIP_DB"),
		Debug:      envBool("STEWARD_DEBUG"),
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
