package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Data source selectors.
const (
	SourceMock     = "mock"
	SourcePostgres = "postgres"
	SinkLocal      = "local"
	SinkPostgres   = "postgres"
)

// Authentication modes.
const (
	AuthModePermissive = "permissive"
	AuthModeDemo       = "demo"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Session       SessionConfig
	Auth          AuthConfig
	Attendance    AttendanceConfig
	Dashboard     DashboardConfig
	Announcements AnnouncementConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig mirrors the browser session rules of the portal.
type SessionConfig struct {
	TTL              time.Duration
	WarningAfter     time.Duration
	CSRFSecret       string
	CSRFTTL          time.Duration
	MaxSuspicious    int
	RequireCSRF      bool
	ContentSecPolicy string
}

// AuthConfig selects how the simulated login accepts credentials.
type AuthConfig struct {
	Mode         string
	DemoEmail    string
	DemoPassword string
}

// AttendanceConfig wires the roster data source, submission sink and gating clock.
type AttendanceConfig struct {
	Timezone          string
	DataSource        string
	SubmissionSink    string
	StorageDir        string
	SubmitInterval    time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
	MockRosterSize    int
	SweepInterval     time.Duration
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// AnnouncementConfig controls the "new" badge window.
type AnnouncementConfig struct {
	NewWindow time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{
		TTL:              parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		WarningAfter:     parseDuration(v.GetString("SESSION_WARNING_AFTER"), 19*time.Minute),
		CSRFSecret:       v.GetString("CSRF_SECRET"),
		CSRFTTL:          parseDuration(v.GetString("CSRF_TTL"), time.Hour),
		MaxSuspicious:    v.GetInt("SESSION_MAX_SUSPICIOUS"),
		RequireCSRF:      v.GetBool("CSRF_REQUIRED"),
		ContentSecPolicy: v.GetString("CONTENT_SECURITY_POLICY"),
	}

	cfg.Auth = AuthConfig{
		Mode:         strings.ToLower(v.GetString("AUTH_MODE")),
		DemoEmail:    v.GetString("DEMO_EMAIL"),
		DemoPassword: v.GetString("DEMO_PASSWORD"),
	}

	cfg.Attendance = AttendanceConfig{
		Timezone:          v.GetString("TIMEZONE"),
		DataSource:        strings.ToLower(v.GetString("DATA_SOURCE")),
		SubmissionSink:    strings.ToLower(v.GetString("SUBMISSION_SINK")),
		StorageDir:        v.GetString("SUBMISSIONS_STORAGE_DIR"),
		SubmitInterval:    parseDuration(v.GetString("SUBMIT_MIN_INTERVAL"), time.Second),
		WorkerConcurrency: v.GetInt("SUBMISSION_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("SUBMISSION_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("SUBMISSION_RETRY_DELAY"), time.Second),
		MockRosterSize:    v.GetInt("MOCK_ROSTER_SIZE"),
		SweepInterval:     parseDuration(v.GetString("ROSTER_SWEEP_INTERVAL"), 5*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Announcements = AnnouncementConfig{
		NewWindow: parseDuration(v.GetString("ANNOUNCEMENT_NEW_WINDOW"), 72*time.Hour),
	}

	return cfg
}

// Location resolves the configured timezone, falling back to the process local zone.
func (c AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "teacher_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "teacher-portal")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_WARNING_AFTER", "19m")
	v.SetDefault("CSRF_SECRET", "dev_csrf_secret")
	v.SetDefault("CSRF_TTL", "1h")
	v.SetDefault("SESSION_MAX_SUSPICIOUS", 5)
	v.SetDefault("CSRF_REQUIRED", false)
	v.SetDefault("CONTENT_SECURITY_POLICY", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:;")

	v.SetDefault("AUTH_MODE", AuthModePermissive)
	v.SetDefault("DEMO_EMAIL", "sarah.smith@school.edu")
	v.SetDefault("DEMO_PASSWORD", "teacher123")

	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("DATA_SOURCE", SourceMock)
	v.SetDefault("SUBMISSION_SINK", SinkLocal)
	v.SetDefault("SUBMISSIONS_STORAGE_DIR", "./attendance_records")
	v.SetDefault("SUBMIT_MIN_INTERVAL", "1s")
	v.SetDefault("SUBMISSION_WORKER_CONCURRENCY", 1)
	v.SetDefault("SUBMISSION_WORKER_RETRIES", 3)
	v.SetDefault("SUBMISSION_RETRY_DELAY", "1s")
	v.SetDefault("MOCK_ROSTER_SIZE", 25)
	v.SetDefault("ROSTER_SWEEP_INTERVAL", "5m")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("ANNOUNCEMENT_NEW_WINDOW", "72h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
