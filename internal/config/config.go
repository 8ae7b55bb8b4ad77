package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Session struct {
		CookieName string
		// TTLHours is the server-side expiry for a plain login.
		TTLHours int
		// RememberDays is the expiry when remember-me is ticked.
		RememberDays int
	}
	Auth struct {
		// ResetSecret signs password-reset tokens.
		ResetSecret   string
		ResetTTLMin   int
		SecureCookies bool
	}
	Admin struct {
		// Seed credentials for the first admin account; registration can
		// never produce one.
		Username string
		Email    string
		Password string
	}
	Audit struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		// IntervalHours is how often archives are written and stale ones
		// pruned.
		IntervalHours int
		RetentionDays int
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// missing .env is fine; real env always wins
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/ems.db")
	v.SetDefault("session.cookiename", "ems_session")
	v.SetDefault("session.ttlhours", 12)
	v.SetDefault("session.rememberdays", 30)
	v.SetDefault("auth.resetsecret", "")
	v.SetDefault("auth.resetttlmin", 30)
	v.SetDefault("auth.securecookies", false)
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("audit.bucket", "")
	v.SetDefault("audit.keyprefix", "ems-audit")
	v.SetDefault("audit.region", "us-east-1")
	v.SetDefault("audit.endpoint", "")
	v.SetDefault("audit.intervalhours", 24)
	v.SetDefault("audit.retentiondays", 90)
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
