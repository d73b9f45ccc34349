package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	MongoDB      MongoDBConfig      `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	Logger       LoggerConfig       `yaml:"logger"`
	Auction      AuctionConfig      `yaml:"auction"`
	Giveaway     GiveawayConfig     `yaml:"giveaway"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Notification NotificationConfig `yaml:"notification"`
	Auth         AuthConfig         `yaml:"auth"`
}

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env:"HTTP_TIMEOUT_GRACEFUL" env-default:"15s"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User     string `yaml:"user" env:"MONGO_USER"`
	Password string `yaml:"password" env:"MONGO_PASSWORD"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"ton_nft_market"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type AuctionConfig struct {
	MinDuration     time.Duration `yaml:"min_duration" env:"AUCTION_MIN_DURATION" env-default:"24h"`
	MaxDuration     time.Duration `yaml:"max_duration" env:"AUCTION_MAX_DURATION" env-default:"168h"`
	MinBidIncrease  float64       `yaml:"min_bid_increase" env:"AUCTION_MIN_BID_INCREASE" env-default:"0.05"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"AUCTION_SWEEP_INTERVAL" env-default:"15s"`
	ConflictRetries int           `yaml:"conflict_retries" env:"AUCTION_CONFLICT_RETRIES" env-default:"3"`
}

type GiveawayConfig struct {
	MinDuration time.Duration `yaml:"min_duration" env:"GIVEAWAY_MIN_DURATION" env-default:"1h"`
	MaxDuration time.Duration `yaml:"max_duration" env:"GIVEAWAY_MAX_DURATION" env-default:"168h"`
}

type RateLimitConfig struct {
	BidLimit  int           `yaml:"bid_limit" env:"RATE_LIMIT_BID_MAX" env-default:"30"`
	BidWindow time.Duration `yaml:"bid_window" env:"RATE_LIMIT_BID_WINDOW" env-default:"1m"`
}

type NotificationConfig struct {
	QueueSize int    `yaml:"queue_size" env:"NOTIFICATION_QUEUE_SIZE" env-default:"256"`
	Subject   string `yaml:"subject" env:"NOTIFICATION_SUBJECT" env-default:"notifications"`
	Channel   string `yaml:"channel" env:"EVENT_CHANNEL" env-default:"auction.events"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok && path != "" {
			log.Printf("Warning: Config file not found at %s, attempting to load from environment variables only.", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
