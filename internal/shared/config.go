package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	// Storage is "mysql" or "memory".
	Storage  string
	MySQLDSN string

	// An empty RedisAddr disables the shared cache and the distributed room lock.
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration
	LockTTL   time.Duration

	// An empty RabbitURL disables event publishing.
	RabbitURL   string
	RabbitQueue string

	DeletePolicy string
	RateLimitRPS int

	SeedFile    string
	SeedWorkers int
}

// Load reads the environment, after merging a .env file when one is present.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ":9100"),
		Storage:      strings.ToLower(env("STORAGE", "mysql")),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		LockTTL:      time.Duration(atoi("ROOM_LOCK_TTL_SECONDS", 10)) * time.Second,
		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		RabbitQueue:  env("RABBITMQ_QUEUE", "hotel.events"),
		DeletePolicy: env("BOOKING_DELETE_POLICY", "restrict"),
		RateLimitRPS: atoi("HTTP_RATE_LIMIT_RPS", 0),
		SeedFile:     env("SEED_FILE", "seed.json"),
		SeedWorkers:  atoi("SEED_WORKERS", 4),
	}
	if c.Storage != "mysql" && c.Storage != "memory" {
		log.Warn().Str("storage", c.Storage).Msg("unknown STORAGE, falling back to mysql")
		c.Storage = "mysql"
	}
	if c.SeedWorkers < 1 {
		c.SeedWorkers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
