package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PostgresConfig selects the in-memory store when DSN is empty.
type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// RedisConfig disables the broadcast relay and the AI rate limiter when Addr is empty.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	Stream      string
	MaxLen      int64
}

type StorageConfig struct {
	Driver       string
	LocalRoot    string
	PublicPrefix string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	Region       string
}

type SecurityConfig struct {
	SessionTTL   time.Duration
	CookieName   string
	CookieSecure bool
	TicketSecret string
	TicketTTL    time.Duration
}

type ChatConfig struct {
	HistoryLimit     int
	ContextFetch     int
	ContextWindow    int
	MaxUploadBytes   int64
	SendBuffer       int
	WriteWait        time.Duration
	PongWait         time.Duration
	BroadcastTimeout time.Duration
	AssistantName    string
	AssistantEmail   string
}

type AIConfig struct {
	APIKey             string
	BaseURL            string
	PrimaryModel       string
	FallbackModel      string
	Timeout            time.Duration
	MaxTokens          int64
	Temperature        float64
	SystemPrompt       string
	RateLimitPerMinute int
}

type JobsConfig struct {
	SessionSweep string
	SessionGrace time.Duration
}

type SeedConfig struct {
	ManagerEmail    string
	ManagerName     string
	ManagerPassword string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

type AppConfig struct {
	Environment      string
	LogLevel         string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Chat             ChatConfig
	AI               AIConfig
	Jobs             JobsConfig
	Seed             SeedConfig
	Telemetry        TelemetryConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.readtimeout", "15s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "120s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolsize", 0)
	v.SetDefault("redis.dialtimeout", "5s")
	v.SetDefault("redis.stream", "chat:broadcast")
	v.SetDefault("redis.maxlen", 1000)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.localroot", "uploads")
	v.SetDefault("storage.publicprefix", "/uploads")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "portal-media")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "168h") // 7 days
	v.SetDefault("security.cookiename", "session_id")
	v.SetDefault("security.cookiesecure", false)
	v.SetDefault("security.ticketsecret", "change-me")
	v.SetDefault("security.ticketttl", "1m")

	v.SetDefault("chat.historylimit", 50)
	v.SetDefault("chat.contextfetch", 10)
	v.SetDefault("chat.contextwindow", 5)
	v.SetDefault("chat.maxuploadbytes", 50<<20)
	v.SetDefault("chat.sendbuffer", 32)
	v.SetDefault("chat.writewait", "10s")
	v.SetDefault("chat.pongwait", "60s")
	v.SetDefault("chat.broadcasttimeout", "5s")
	v.SetDefault("chat.assistantname", "AI Assistant")
	v.SetDefault("chat.assistantemail", "assistant@portal.local")

	v.SetDefault("ai.apikey", "")
	v.SetDefault("ai.baseurl", "")
	v.SetDefault("ai.primarymodel", "o1-mini")
	v.SetDefault("ai.fallbackmodel", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.maxtokens", 500)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.systemprompt", "You are a helpful assistant in the Valve corporate chat. Answer briefly, kindly and professionally.")
	v.SetDefault("ai.ratelimitperminute", 10)

	v.SetDefault("jobs.sessionsweep", "0 0 * * * *") // hourly
	v.SetDefault("jobs.sessiongrace", "24h")

	v.SetDefault("seed.manageremail", "boss@valve.com")
	v.SetDefault("seed.managername", "admin")
	v.SetDefault("seed.managerpassword", "")

	v.SetDefault("telemetry.otlpendpoint", "")
	v.SetDefault("telemetry.insecure", false)

	v.SetDefault("allowcorsorigins", []string{})
}
