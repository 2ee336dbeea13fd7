package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server and client settings read from the environment.
// Call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	Port int

	// Admin
	AdminPassword string   // plain text or a bcrypt hash ($2a$/$2b$/$2y$)
	AdminHWIDs    []string // lower-cased device fingerprints with admin rights
	JWTSecret     string   // HMAC key for admin tokens; empty = random per process
	AdminTokenTTL time.Duration
	AdminRate     float64 // admin/auth attempts per second per client IP
	AdminBurst    int
	TrustProxy    bool // take the client IP from X-Forwarded-For (behind a reverse proxy)

	// Sources
	DefaultM3UURL  string   // used until an admin saves another URL
	StaticCatalog  string   // YAML static catalog ("" = none)
	YouTubeCatalog string   // YAML catalog of youtube_channel entries ("" = none)
	RelayProxies   []string // CORS relays tried after a failed direct fetch ("" = direct only)
	UserAgent      string

	// Cache / fetch
	CacheTTL     time.Duration
	FetchTimeout time.Duration

	// Paths
	SettingsPath  string // persisted {"m3uUrl": ...}
	SnapshotPath  string // last good snapshot, warm start after restart
	FavoritesDB   string // SQLite favorites store
	PublicDir     string // static SPA
	FavoritesFile string // TUI favorites (JSON)

	// Player (TUI)
	PlayerEngines []string // preference order, e.g. mpv,ffplay,xdg-open
	YTDLPPath     string
	ScreenWidth   int // picks the default YouTube quality
}

// Load reads config from environment.
func Load() *Config {
	c := &Config{
		Port:           getEnvInt("PORT", 3000),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminHWIDs:     getEnvList("ADMIN_HWIDS", true),
		JWTSecret:      os.Getenv("CRIOLLO_JWT_SECRET"),
		AdminTokenTTL:  getEnvDuration("CRIOLLO_ADMIN_TOKEN_TTL", 12*time.Hour),
		AdminRate:      getEnvFloat("CRIOLLO_ADMIN_RATE", 5.0/60.0),
		AdminBurst:     getEnvInt("CRIOLLO_ADMIN_BURST", 5),
		TrustProxy:     getEnvBool("CRIOLLO_TRUST_PROXY", false),
		DefaultM3UURL:  strings.TrimSpace(os.Getenv("M3U_URL")),
		StaticCatalog:  os.Getenv("CRIOLLO_STATIC_CATALOG"),
		YouTubeCatalog: os.Getenv("CRIOLLO_YOUTUBE_CATALOG"),
		RelayProxies:   getEnvList("CRIOLLO_RELAY_PROXIES", false),
		UserAgent:      getEnv("CRIOLLO_USER_AGENT", "CriolloTV/1.0"),
		CacheTTL:       getEnvDuration("CRIOLLO_CACHE_TTL", 5*time.Minute),
		FetchTimeout:   getEnvDuration("CRIOLLO_FETCH_TIMEOUT", 30*time.Second),
		SettingsPath:   getEnv("CRIOLLO_CONFIG_PATH", "./config.json"),
		SnapshotPath:   getEnv("CRIOLLO_SNAPSHOT_PATH", "./channels.json"),
		FavoritesDB:    getEnv("CRIOLLO_FAVORITES_DB", "./favorites.db"),
		PublicDir:      getEnv("CRIOLLO_PUBLIC_DIR", "./public"),
		FavoritesFile:  getEnv("CRIOLLO_FAVORITES_FILE", defaultFavoritesFile()),
		PlayerEngines:  getEnvList("CRIOLLO_PLAYER_ENGINES", false),
		YTDLPPath:      getEnv("CRIOLLO_YTDLP", "yt-dlp"),
		ScreenWidth:    getEnvInt("CRIOLLO_SCREEN_WIDTH", 1920),
	}
	if c.Port <= 0 {
		c.Port = 3000
	}
	return c
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func defaultFavoritesFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./favorites.json"
	}
	return dir + string(os.PathSeparator) + "criollotv" + string(os.PathSeparator) + "favorites.json"
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma list, trimming blanks and optionally lower-casing.
func getEnvList(key string, lower bool) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if lower {
			s = strings.ToLower(s)
		}
		out = append(out, s)
	}
	return out
}
