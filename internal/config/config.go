package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"

	MediaLocal      = "local"
	MediaStatic     = "static"
	MediaCloudinary = "cloudinary"
)

type Config struct {
	Env        string
	ServerAddr string
	SiteURL    string
	LogLevel   string

	StoreDriver string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	RedisURL        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	JWTSecret         string
	SessionTTLMinutes int
	CookieSecure      bool
	AdminAPIKey       string
	FrontendOrigins   []string

	RateLimitComments  int
	RateLimitWindowSec int

	MediaBackend string
	MediaURL     string
	MediaRoot    string
	StaticURL    string
	StaticRoot   string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	BrevoAPIKey      string
	BrevoSenderEmail string
	BrevoSenderName  string
	BrevoSandbox     bool
	ModeratorEmails  []string

	Timezone *time.Location
}

// Load reads .env (without overriding the process environment) and resolves every setting
// against its default.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(v.GetString("TZ"))
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}

	mongoURI := v.GetString("MONGO_URI")
	mongoDB := v.GetString("MONGO_DB")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "coreflow"
	}

	mediaBackend := strings.ToLower(strings.TrimSpace(v.GetString("MEDIA_BACKEND")))
	if mediaBackend == "" {
		mediaBackend = MediaLocal
		// PaaS dynos have an ephemeral filesystem; uploads ship inside the static bundle.
		if v.IsSet("DYNO") && v.GetString("DYNO") != "" {
			mediaBackend = MediaStatic
		}
	}

	cfg := &Config{
		Env:                 v.GetString("APP_ENV"),
		ServerAddr:          v.GetString("SERVER_ADDR"),
		SiteURL:             strings.TrimRight(v.GetString("SITE_URL"), "/"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		StoreDriver:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		MongoURI:            mongoURI,
		MongoDB:             mongoDB,
		RedisURL:            v.GetString("REDIS_URL"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		CacheTTLSeconds:     v.GetInt("CACHE_TTL_SECONDS"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		SessionTTLMinutes:   v.GetInt("SESSION_TTL_MINUTES"),
		CookieSecure:        v.GetBool("COOKIE_SECURE"),
		AdminAPIKey:         v.GetString("ADMIN_API_KEY"),
		FrontendOrigins:     splitList(v.GetString("FRONTEND_ORIGINS")),
		RateLimitComments:   v.GetInt("RATE_LIMIT_COMMENTS"),
		RateLimitWindowSec:  v.GetInt("RATE_LIMIT_WINDOW_SEC"),
		MediaBackend:        mediaBackend,
		MediaURL:            withTrailingSlash(v.GetString("MEDIA_URL")),
		MediaRoot:           v.GetString("MEDIA_ROOT"),
		StaticURL:           withTrailingSlash(v.GetString("STATIC_URL")),
		StaticRoot:          v.GetString("STATIC_ROOT"),
		CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		BrevoAPIKey:         v.GetString("BREVO_API_KEY"),
		BrevoSenderEmail:    v.GetString("BREVO_SENDER_EMAIL"),
		BrevoSenderName:     v.GetString("BREVO_SENDER_NAME"),
		BrevoSandbox:        v.GetBool("BREVO_SANDBOX"),
		ModeratorEmails:     splitList(v.GetString("MODERATOR_EMAILS")),
		Timezone:            loc,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("DATABASE_URL", "coreflow.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/coreflow")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 60)
	v.SetDefault("SESSION_TTL_MINUTES", 60*24*14)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("FRONTEND_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_COMMENTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SEC", 60)
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("MEDIA_ROOT", "media")
	v.SetDefault("STATIC_URL", "/static/")
	v.SetDefault("STATIC_ROOT", "staticfiles")
	v.SetDefault("BREVO_SANDBOX", false)
	v.SetDefault("TZ", "UTC")
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMySQL, StoreSQLite:
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MediaBackend {
	case MediaLocal, MediaStatic:
	case MediaCloudinary:
		if c.CloudinaryCloudName == "" {
			return errors.New("config: MEDIA_BACKEND=cloudinary requires CLOUDINARY_CLOUD_NAME")
		}
	default:
		return fmt.Errorf("config: unsupported MEDIA_BACKEND %q", c.MediaBackend)
	}
	if c.Env == "production" && c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required in production")
	}
	return nil
}

// SessionTTL is the lifetime of a login session cookie.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// only the first path segment names the database
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func withTrailingSlash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
