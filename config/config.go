package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN" validate:"required"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!" validate:"required,max=5"`
	ShardCount    int    `env:"SHARD_COUNT" envDefault:"0" validate:"gte=0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`

	Resolver         string        `env:"RESOLVER" envDefault:"youtube" validate:"oneof=youtube ytdlp"`
	YTDLPBinary      string        `env:"YTDLP_BINARY" envDefault:"yt-dlp"`
	YTDLPTempDir     string        `env:"YTDLP_TEMP_DIR"`
	FFmpegBinary     string        `env:"FFMPEG_BINARY" envDefault:"ffmpeg" validate:"required"`
	ResolveTimeout   time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	MetadataCacheTTL time.Duration `env:"METADATA_CACHE_TTL" envDefault:"10m" validate:"gte=0"`

	CommandRate  float64 `env:"COMMAND_RATE" envDefault:"1" validate:"gt=0"`
	CommandBurst int     `env:"COMMAND_BURST" envDefault:"3" validate:"gte=1"`

	DBHost     string `env:"DB_HOST"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432" validate:"gte=0,lte=65535"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379" validate:"gte=0,lte=65535"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
}

// Load reads the optional dotenv files, then the process environment.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrapf(err, "load env file %s", strings.Join(envFiles, ","))
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.Newf("invalid config: %s failed %q", first.Field(), first.Tag())
		}
		return errors.Wrap(err, "invalid config")
	}

	if c.DBHost != "" && (c.DBUser == "" || c.DBName == "") {
		return errors.New("DB_USER and DB_NAME are required when DB_HOST is set")
	}
	return nil
}

func (c *Config) IsDatabaseEnabled() bool {
	return c.DBHost != ""
}

func (c *Config) IsRedisEnabled() bool {
	return c.RedisHost != ""
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *Config) GetDBConfig() *DBConfig {
	return &DBConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *Config) GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
