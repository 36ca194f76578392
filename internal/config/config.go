package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "voter-outreach/common/config"

	"github.com/joho/godotenv"
)

// Config voter-outreach service configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	// DBEnabled false runs on the in-memory store (dev only, nothing persists)
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Import ImportConfig
	Events EventsConfig
	Notify NotifyConfig
}

// ImportConfig roll ingestion settings
type ImportConfig struct {
	BatchSize    int
	JobTTL       time.Duration
	PreviewRows  int
	MaxUploadMB  int64
	CountryCode  string
	JobKeyPrefix string
}

// EventsConfig call event stream
type EventsConfig struct {
	Enabled      bool
	CallsStream  string
	StreamMaxLen int64
}

// NotifyConfig assignment notifications to the push gateway.
// Mode: "none", "webhook" or "mqtt".
type NotifyConfig struct {
	Mode       string
	WebhookURL string
	AuthToken  string
	Timeout    time.Duration
	MQTT       commoncfg.MQTTConfig
	MQTTTopic  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured but never overrides variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") != "false"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "outreach",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Import.BatchSize = parseInt(getEnv("IMPORT_BATCH_SIZE", "1000"), 1000)
	cfg.Import.JobTTL = parseDuration(getEnv("IMPORT_JOB_TTL", "30m"), 30*time.Minute)
	cfg.Import.PreviewRows = parseInt(getEnv("IMPORT_PREVIEW_ROWS", "5"), 5)
	cfg.Import.MaxUploadMB = int64(parseInt(getEnv("IMPORT_MAX_UPLOAD_MB", "50"), 50))
	cfg.Import.CountryCode = getEnv("PHONE_COUNTRY_CODE", "234")
	cfg.Import.JobKeyPrefix = getEnv("IMPORT_JOB_KEY_PREFIX", "outreach:import-job:")

	cfg.Events.Enabled = getEnv("CALL_EVENTS_ENABLED", "true") == "true"
	cfg.Events.CallsStream = getEnv("CALL_EVENTS_STREAM", "outreach:calls")
	cfg.Events.StreamMaxLen = int64(parseInt(getEnv("CALL_EVENTS_MAXLEN", "100000"), 100000))

	cfg.Notify.Mode = getEnv("NOTIFY_MODE", "none")
	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Notify.AuthToken = getEnv("NOTIFY_AUTH_TOKEN", "")
	cfg.Notify.Timeout = parseDuration(getEnv("NOTIFY_TIMEOUT", "5s"), 5*time.Second)
	cfg.Notify.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "voter-outreach",
		QoS:      1,
	}
	cfg.Notify.MQTT.LoadFromEnv("MQTT")
	cfg.Notify.MQTTTopic = getEnv("NOTIFY_MQTT_TOPIC", "outreach/assignments")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
