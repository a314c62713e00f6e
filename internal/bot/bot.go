package bot

import (
	"context"
	"database/sql"

	"github.com/bwmarrin/discordgo"
	redislib "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hxnx/jukebot/config"
	"github.com/hxnx/jukebot/internal/database"
	commands "github.com/hxnx/jukebot/internal/features"
	musiccmd "github.com/hxnx/jukebot/internal/features/music/commands"
	musiclisteners "github.com/hxnx/jukebot/internal/features/music/listeners"
	"github.com/hxnx/jukebot/internal/features/ping"
	"github.com/hxnx/jukebot/internal/music"
	"github.com/hxnx/jukebot/internal/redis"
)

// Version is reported in the help embed; overridden at build time with -ldflags.
var Version = "v1.0"

type Bot struct {
	config       *config.Config
	sessions     []*discordgo.Session
	manager      *music.Manager
	router       *commands.Router
	voiceStates  *musiclisteners.VoiceStateHandler
	history      *database.HistoryRepository
	db           *sql.DB
	redis        *redislib.Client
	started      bool
	presenceStop chan struct{}
}

func New(cfg *config.Config) (*Bot, error) {
	ctx := context.Background()
	b := &Bot{config: cfg}

	if cfg.IsDatabaseEnabled() {
		dbCfg := cfg.GetDBConfig()
		db, err := database.Open(ctx, &database.Config{
			Host:     dbCfg.Host,
			Port:     dbCfg.Port,
			User:     dbCfg.User,
			Password: dbCfg.Password,
			DBName:   dbCfg.Name,
			SSLMode:  dbCfg.SSLMode,
		})
		if err != nil {
			zlog.Warn().Err(err).Msg("database initialization failed, history disabled")
		} else {
			b.db = db
		}
	}
	b.history = database.NewHistoryRepository(b.db)

	if cfg.IsRedisEnabled() {
		redisCfg := cfg.GetRedisConfig()
		client, err := redis.New(ctx, redis.Config{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err != nil {
			zlog.Warn().Err(err).Msg("redis initialization failed, metadata cache disabled")
		} else {
			b.redis = client
		}
	}

	sessions, err := openShards(cfg)
	if err != nil {
		return nil, err
	}
	b.sessions = sessions

	resolver := music.NewCachedResolver(newResolver(cfg), b.redis, cfg.MetadataCacheTTL)
	gateway := music.NewDiscordGateway(b.sessionFor, cfg.FFmpegBinary)
	b.manager = music.NewManager(resolver, gateway, music.WithEventHandler(b.handleEvent))

	b.router = commands.NewRouter(cfg.CommandPrefix, rate.Limit(cfg.CommandRate), cfg.CommandBurst)
	musiccmd.New(b.manager,
		musiccmd.WithHistory(b.history),
		musiccmd.WithResolveTimeout(cfg.ResolveTimeout),
		musiccmd.WithVersion(Version),
	).Register(b.router)
	b.router.Register("ping", ping.Command(b.pingStats))

	b.voiceStates = musiclisteners.NewVoiceStateHandler(b.manager, b.sessionTextChannel)
	return b, nil
}

func newResolver(cfg *config.Config) music.Resolver {
	if cfg.Resolver == "ytdlp" {
		return music.NewYTDLPResolver(cfg.YTDLPBinary, cfg.YTDLPTempDir)
	}
	return music.NewYouTubeResolver(nil)
}

func openShards(cfg *config.Config) ([]*discordgo.Session, error) {
	shardCount := cfg.ShardCount
	if shardCount < 1 {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		if gw, err := s.GatewayBot(); err == nil && gw.Shards > 0 {
			shardCount = gw.Shards
		} else {
			zlog.Warn().Err(err).Msg("failed to auto-detect shard count, defaulting to 1")
			shardCount = 1
		}
	}

	sessions := make([]*discordgo.Session, 0, shardCount)
	for shard := 0; shard < shardCount; shard++ {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		s.Identify.Intents = discordgo.IntentsGuilds |
			discordgo.IntentsGuildVoiceStates |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsMessageContent

		if shardCount > 1 {
			s.Identify.Shard = &[2]int{shard, shardCount}
			s.ShardID = shard
			s.ShardCount = shardCount
		}

		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (b *Bot) Start() error {
	if b.started || len(b.sessions) == 0 {
		return nil
	}

	for _, s := range b.sessions {
		b.registerHandlers(s)
	}

	for _, s := range b.sessions {
		if err := s.Open(); err != nil {
			return err
		}
	}

	b.startPresenceUpdater()
	b.started = true
	zlog.Info().Int("shards", len(b.sessions)).Strs("commands", b.router.Commands()).Msg("bot session opened")
	return nil
}

func (b *Bot) registerHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if s.State != nil && s.State.User != nil {
			zlog.Info().Str("user", s.State.User.Username).Int("shard", s.ShardID).Msg("bot ready")
		} else {
			zlog.Info().Int("shard", s.ShardID).Msg("bot ready")
		}
		b.updatePresence()
	})
	s.AddHandler(b.router.HandleMessage)
	s.AddHandler(b.voiceStates.Handle)
}

// Stop ends every playback session before closing the gateway so voice
// connections are released cleanly.
func (b *Bot) Stop() error {
	if !b.started {
		return nil
	}

	b.started = false
	b.stopPresenceUpdater()
	b.manager.StopAll()

	for _, s := range b.sessions {
		if err := s.Close(); err != nil {
			return err
		}
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			zlog.Warn().Err(err).Msg("failed to close database")
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			zlog.Warn().Err(err).Msg("failed to close redis")
		}
	}

	zlog.Info().Int("shards", len(b.sessions)).Msg("bot session closed")
	return nil
}

func (b *Bot) sessionFor(guildID string) *discordgo.Session {
	if len(b.sessions) == 0 {
		return nil
	}
	return b.sessions[ShardFor(guildID, len(b.sessions))]
}

func (b *Bot) sessionTextChannel(guildID string) (string, bool) {
	s, ok := b.manager.Registry().Get(guildID)
	if !ok {
		return "", false
	}
	return s.TextChannelID, true
}

func (b *Bot) pingStats(guildID string) ping.Stats {
	return ping.SessionStats(b.sessionFor(guildID), b.manager.ActiveSessions())
}
