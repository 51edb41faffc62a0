package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Admins allowed to trigger maintenance over HTTP
	AdminUserIDs []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: mysql | postgres | sqlite
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and maintenance locks; empty host disables it
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Streak and economy
	TimezoneOffsetHours   int
	DefaultDailyTarget    int
	MaxHearts             int
	PointsToRefill        int
	FirstCompletionPoints int
	PracticePoints        int
	PenaltyPoints         int
	GamePoints            int
	// Upper bound of |delta| for one point change
	MaxPointsDelta int
	MaxGameDelta   int
	// Daily maintenance
	DailyResetEnabled       bool
	DailyResetPollMinutes   int
	SchoolRecomputeParallel int

	offsetSet bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// optional .env next to the binary; real environment variables win
	_ = godotenv.Load()

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Override replaces the cached configuration. Used by tests and CLI flags.
// TimezoneOffsetHours is taken as given, including 0 for UTC.
func Override(c AppConfig) {
	c.offsetSet = true
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// IsAdmin reports whether userID is listed in AdminUserIDs.
func (c AppConfig) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) (int, bool) {
		switch t := m[key].(type) {
		case float64:
			return int(t), true
		case int:
			return t, true
		}
		return 0, false
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	setString := func(dst *string, m map[string]any, key string) {
		if v := getString(m, key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, m map[string]any, key string) {
		if v, ok := getInt(m, key); ok && v != 0 {
			*dst = v
		}
	}

	// grouped sections
	if app, ok := raw["app"].(map[string]any); ok {
		setString(&out.AppPort, app, "AppPort")
		setString(&out.JWTSecret, app, "JWTSecret")
		setInt(&out.RateLimitPerMinute, app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUserIDs"); len(list) > 0 {
			out.AdminUserIDs = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		setString(&out.GinMode, g, "Mode")
		setString(&out.GinPath, g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		setString(&out.DBDriver, dbs, "Driver")
		setString(&out.DatabaseURI, dbs, "DatabaseURI")
		setString(&out.DBHost, dbs, "DBHost")
		setString(&out.DBPort, dbs, "DBPort")
		setString(&out.DBUser, dbs, "DBUser")
		setString(&out.DBPassword, dbs, "DBPassword")
		setString(&out.DBName, dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		setString(&out.RedisHost, rds, "RedisHost")
		setInt(&out.RedisPort, rds, "RedisPort")
		setInt(&out.RedisDB, rds, "RedisDB")
		setString(&out.RedisPassword, rds, "RedisPassword")
		setInt(&out.CacheTTLSeconds, rds, "CacheTTLSeconds")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		setString(&out.LogLevel, lg, "Level")
		setString(&out.LogPath, lg, "Path")
		setString(&out.GinMode, lg, "GinMode")
		setString(&out.GinPath, lg, "GinPath")
		setInt(&out.LogMaxSizeMB, lg, "MaxSizeMB")
		setInt(&out.LogMaxBackups, lg, "MaxBackups")
		setInt(&out.LogMaxAgeDays, lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if st, ok := raw["streak"].(map[string]any); ok {
		if v, ok := getInt(st, "TimezoneOffsetHours"); ok {
			out.TimezoneOffsetHours = v
			out.offsetSet = true
		}
		setInt(&out.DefaultDailyTarget, st, "DefaultDailyTarget")
		setInt(&out.MaxHearts, st, "MaxHearts")
		setInt(&out.PointsToRefill, st, "PointsToRefill")
		setInt(&out.FirstCompletionPoints, st, "FirstCompletionPoints")
		setInt(&out.PracticePoints, st, "PracticePoints")
		setInt(&out.PenaltyPoints, st, "PenaltyPoints")
		setInt(&out.GamePoints, st, "GamePoints")
		setInt(&out.MaxPointsDelta, st, "MaxPointsDelta")
		setInt(&out.MaxGameDelta, st, "MaxGameDelta")
	}

	if mt, ok := raw["maintenance"].(map[string]any); ok {
		out.DailyResetEnabled = getBool(mt, "DailyResetEnabled")
		setInt(&out.DailyResetPollMinutes, mt, "DailyResetPollMinutes")
		setInt(&out.SchoolRecomputeParallel, mt, "SchoolRecomputeParallel")
	}

	// flat keys for backward compatibility
	if out.AppPort == "" {
		setString(&out.AppPort, raw, "AppPort")
	}
	if out.JWTSecret == "" {
		setString(&out.JWTSecret, raw, "JWTSecret")
	}
	if out.DatabaseURI == "" {
		setString(&out.DatabaseURI, raw, "DatabaseURI")
	}
	if out.DBDriver == "" {
		setString(&out.DBDriver, raw, "DBDriver")
	}
	if out.RedisHost == "" {
		setString(&out.RedisHost, raw, "RedisHost")
	}
	if out.LogLevel == "" {
		setString(&out.LogLevel, raw, "LogLevel")
	}
	if out.RateLimitPerMinute == 0 {
		setInt(&out.RateLimitPerMinute, raw, "RateLimitPerMinute")
	}
	if len(out.AdminUserIDs) == 0 {
		out.AdminUserIDs = getStringSlice(raw, "AdminUserIDs")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "istikrar"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if !c.offsetSet && c.TimezoneOffsetHours == 0 {
		c.TimezoneOffsetHours = 3
	}
	if c.DefaultDailyTarget == 0 {
		c.DefaultDailyTarget = 50
	}
	if c.MaxHearts == 0 {
		c.MaxHearts = 5
	}
	if c.PointsToRefill == 0 {
		c.PointsToRefill = 200
	}
	if c.FirstCompletionPoints == 0 {
		c.FirstCompletionPoints = 10
	}
	if c.PracticePoints == 0 {
		c.PracticePoints = 2
	}
	if c.PenaltyPoints == 0 {
		c.PenaltyPoints = -10
	}
	if c.GamePoints == 0 {
		c.GamePoints = 1
	}
	if c.MaxPointsDelta <= 0 {
		c.MaxPointsDelta = 100
	}
	if c.MaxGameDelta <= 0 {
		c.MaxGameDelta = 100
	}
	if c.DailyResetPollMinutes == 0 {
		c.DailyResetPollMinutes = 5
	}
	if c.SchoolRecomputeParallel == 0 {
		c.SchoolRecomputeParallel = 4
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("ADMIN_USER_IDS", ""); v != "" {
		c.AdminUserIDs = readListEnv("ADMIN_USER_IDS", c.AdminUserIDs)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("TIMEZONE_OFFSET_HOURS", ""); v != "" {
		c.TimezoneOffsetHours = mustParseInt(v)
		c.offsetSet = true
	}
	if v := getEnv("DEFAULT_DAILY_TARGET", ""); v != "" {
		c.DefaultDailyTarget = mustParseInt(v)
	}
	if v := getEnv("MAX_HEARTS", ""); v != "" {
		c.MaxHearts = mustParseInt(v)
	}
	if v := getEnv("POINTS_TO_REFILL", ""); v != "" {
		c.PointsToRefill = mustParseInt(v)
	}
	if v := getEnv("FIRST_COMPLETION_POINTS", ""); v != "" {
		c.FirstCompletionPoints = mustParseInt(v)
	}
	if v := getEnv("PRACTICE_POINTS", ""); v != "" {
		c.PracticePoints = mustParseInt(v)
	}
	if v := getEnv("PENALTY_POINTS", ""); v != "" {
		c.PenaltyPoints = mustParseInt(v)
	}
	if v := getEnv("GAME_POINTS", ""); v != "" {
		c.GamePoints = mustParseInt(v)
	}
	if v := getEnv("MAX_POINTS_DELTA", ""); v != "" {
		c.MaxPointsDelta = mustParseInt(v)
	}
	if v := getEnv("MAX_GAME_DELTA", ""); v != "" {
		c.MaxGameDelta = mustParseInt(v)
	}
	if v := getEnv("DAILY_RESET_ENABLED", ""); v != "" {
		c.DailyResetEnabled = v == "true"
	}
	if v := getEnv("DAILY_RESET_POLL_MINUTES", ""); v != "" {
		c.DailyResetPollMinutes = mustParseInt(v)
	}
	if v := getEnv("SCHOOL_RECOMPUTE_PARALLEL", ""); v != "" {
		c.SchoolRecomputeParallel = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
