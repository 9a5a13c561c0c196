package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Push driver constants
const (
	PushDriverSNS = "sns"
	PushDriverLog = "log"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (optional, sent-guard)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Tick scheduling. TickInterval is also the time-matching grid: user
	// preferred times quantize to multiples of it.
	TickInterval time.Duration
	TickWorkers  int

	// Push delivery
	PushDriver string // "sns" or "log"
	AWSRegion  string

	// Tick event feed (optional)
	SQSRegion    string
	SQSEventsURL string

	// AI / OpenAI config for premium quote generation
	AIEnabled    bool
	OpenAIAPIKey string
	OpenAIModel  string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "aura",
		DBPassword: "",
		DBName:     "aura",
		DBSSLMode:  "disable",

		// Redis defaults
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		TickInterval: 15 * time.Minute,
		TickWorkers:  8,

		PushDriver: PushDriverLog,
		AWSRegion:  "us-east-1",
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	// Tick config
	if interval := os.Getenv("TICK_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("TICK_INTERVAL must be positive")
		}
		cfg.TickInterval = d
	}

	if workers := os.Getenv("TICK_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return nil, fmt.Errorf("invalid TICK_WORKERS: %w", err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("TICK_WORKERS must be positive")
		}
		cfg.TickWorkers = n
	}

	// Push delivery
	if driver := os.Getenv("PUSH_DRIVER"); driver != "" {
		if driver != PushDriverSNS && driver != PushDriverLog {
			return nil, fmt.Errorf("invalid PUSH_DRIVER: %q (want %q or %q)", driver, PushDriverSNS, PushDriverLog)
		}
		cfg.PushDriver = driver
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	// Tick event feed
	if region := os.Getenv("SQS_REGION"); region != "" {
		cfg.SQSRegion = region
	} else {
		cfg.SQSRegion = cfg.AWSRegion
	}

	if url := os.Getenv("SQS_EVENTS_URL"); url != "" {
		cfg.SQSEventsURL = url
	}

	// AI config
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAIAPIKey = key
		cfg.AIEnabled = true
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.OpenAIModel = model
	} else {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	return cfg, nil
}
