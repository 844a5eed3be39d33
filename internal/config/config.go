package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the interview API.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	ShapesAPIKey         string
	ShapesBaseURL        string
	ShapesVoiceModel     string
	ShapesTextModel      string
	ShapesRequestTimeout time.Duration
	MemoryResetTimeout   time.Duration

	TrustedAudioHost string
	RelayTimeout     time.Duration
	MaxUploadSizeMB  int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	RedisURL    string
	DatabaseURL string
	NATSURL     string
	NATSSubject string

	SessionTTL      time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// legacyEnv maps config keys to the unprefixed variable names the interview
// app has always read.
var legacyEnv = map[string]string{
	"shapes.api_key":        "SHAPES_API_KEY",
	"cloudinary.cloud_name": "CLOUDINARY_CLOUD_NAME",
	"cloudinary.api_key":    "CLOUDINARY_API_KEY",
	"cloudinary.api_secret": "CLOUDINARY_API_SECRET",
	"redis.url":             "REDIS_URL",
	"database.url":          "DATABASE_URL",
	"nats.url":              "NATS_URL",
	"app.port":              "PORT",
}

// Load reads configuration values from environment variables and optional .env file.
// A missing Shapes API key is not an error; interview operations report it instead.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INTERVIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, legacy := range legacyEnv {
		prefixed := "INTERVIEW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.name", "Interview Simulator API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5000")
	v.SetDefault("shapes.base_url", "https://api.shapes.inc/v1")
	v.SetDefault("shapes.voice_model", "shapesinc/carmack")
	v.SetDefault("shapes.text_model", "shapesinc/linus-i7wn")
	v.SetDefault("shapes.timeout", "60s")
	v.SetDefault("shapes.reset_timeout", "5s")
	v.SetDefault("audio.trusted_host", "shapes.inc")
	v.SetDefault("audio.relay_timeout", "10s")
	v.SetDefault("audio.max_upload_mb", 10)
	v.SetDefault("cloudinary.folder", "interview_simulator/audio")
	v.SetDefault("nats.subject", "interview")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"shapes.timeout", "shapes.reset_timeout", "audio.relay_timeout", "session.ttl", "rate_limit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		ShapesAPIKey:           strings.TrimSpace(v.GetString("shapes.api_key")),
		ShapesBaseURL:          v.GetString("shapes.base_url"),
		ShapesVoiceModel:       v.GetString("shapes.voice_model"),
		ShapesTextModel:        v.GetString("shapes.text_model"),
		ShapesRequestTimeout:   durations["shapes.timeout"],
		MemoryResetTimeout:     durations["shapes.reset_timeout"],
		TrustedAudioHost:       strings.ToLower(v.GetString("audio.trusted_host")),
		RelayTimeout:           durations["audio.relay_timeout"],
		MaxUploadSizeMB:        v.GetInt("audio.max_upload_mb"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		RedisURL:               v.GetString("redis.url"),
		DatabaseURL:            v.GetString("database.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		SessionTTL:             durations["session.ttl"],
		RateLimitMax:           v.GetInt("rate_limit.max"),
		RateLimitWindow:        durations["rate_limit.window"],
	}

	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = 10
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 30
	}

	return cfg, nil
}
