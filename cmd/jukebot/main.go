package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/hxnx/jukebot/config"
	"github.com/hxnx/jukebot/internal/bot"
	"github.com/hxnx/jukebot/internal/logger"
)

var (
	app     = kingpin.New("jukebot", "Discord music bot")
	envFile = app.Flag("env-file", "Path to a dotenv file (default: .env if present)").Strings()
	verbose = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile = app.Flag("logfile", "Path to log file (default: stdout)").String()
	showEnv = app.Flag("print-env", "Print the supported environment variables and exit").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *showEnv {
		printEnvHelp()
		return
	}

	cfg, err := config.Load(*envFile...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n\n", err)
		printEnvHelp()
		os.Exit(1)
	}

	loggerConfig := logger.Config{Level: cfg.LogLevel}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	logSummary(cfg)

	b, err := bot.New(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create bot")
	}

	if err := b.Start(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start bot")
	}
	zlog.Info().Msg("bot is running, press CTRL+C to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("shutting down")
	if err := b.Stop(); err != nil {
		zlog.Error().Err(err).Msg("failed to stop bot")
	}
}

func logSummary(cfg *config.Config) {
	shards := "auto"
	if cfg.ShardCount > 0 {
		shards = fmt.Sprint(cfg.ShardCount)
	}

	zlog.Info().
		Str("version", bot.Version).
		Str("prefix", cfg.CommandPrefix).
		Str("resolver", cfg.Resolver).
		Str("shards", shards).
		Dur("resolve_timeout", cfg.ResolveTimeout).
		Float64("command_rate", cfg.CommandRate).
		Int("command_burst", cfg.CommandBurst).
		Bool("history", cfg.IsDatabaseEnabled()).
		Bool("metadata_cache", cfg.IsRedisEnabled()).
		Msg("configuration loaded")
}

func printEnvHelp() {
	fmt.Println(`Required environment variables:
  DISCORD_TOKEN        Discord bot token

Optional environment variables:
  COMMAND_PREFIX       Command prefix (default: !)
  SHARD_COUNT          Number of shards (0 = auto-detect)
  LOG_LEVEL            debug, info, warn, error (default: info)
  RESOLVER             youtube or ytdlp (default: youtube)
  YTDLP_BINARY         yt-dlp executable (default: yt-dlp)
  YTDLP_TEMP_DIR       Scratch directory for yt-dlp
  FFMPEG_BINARY        ffmpeg executable (default: ffmpeg)
  RESOLVE_TIMEOUT      Metadata lookup timeout (default: 30s)
  METADATA_CACHE_TTL   Redis metadata cache TTL (default: 10m)
  COMMAND_RATE         Commands per second per user (default: 1)
  COMMAND_BURST        Command burst per user (default: 3)

Play history (Postgres, enabled when DB_HOST is set):
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE

Metadata cache (Redis, enabled when REDIS_HOST is set):
  REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB`)
}
