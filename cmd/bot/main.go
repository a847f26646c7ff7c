package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/jukebox/internal/blocklist"
	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/handler"
	"github.com/glizzus/jukebox/internal/lavalink"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/glizzus/jukebox/internal/schedule"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/glizzus/jukebox/internal/translate"
	"github.com/glizzus/jukebox/internal/tts"
	"github.com/glizzus/jukebox/internal/voice"
	"github.com/glizzus/jukebox/internal/worker"
	"github.com/kkdai/youtube/v2"
	"github.com/redis/go-redis/v9"
)

// clipCleanupCron removes expired text-to-speech clips every ten minutes.
const clipCleanupCron = "0 */10 * * * * *"

const shutdownTimeout = 10 * time.Second

// playback is the transport-specific part of the bot.
type playback struct {
	transport player.Transport
	searcher  *search.Searcher
	nodes     handler.NodeLister
	// reconnectCron is the node reconnect schedule, empty without nodes.
	reconnectCron string
	// clipResolver is set when clip links must be loaded before playing.
	clipResolver handler.Searcher
	run          func(ctx context.Context) error
}

func newPlayback(session *discordgo.Session, botUserID string, playerCfg *config.PlayerConfig, searchCfg *config.SearchConfig, store blocklist.Store) (*playback, error) {
	if playerCfg.Transport == config.TransportVoice {
		slog.Info("Using local voice transport")
		return &playback{
			transport: voice.NewTransport(session, &voice.YouTubeStreams{Client: &youtube.Client{}}),
			searcher:  search.NewLocalSearcher(store, searchCfg.ResultLimit),
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
		}, nil
	}

	lavalinkCfg, err := config.NewLavalinkConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load lavalink config: %w", err)
	}
	nodes, err := lavalink.ParseNodes(lavalinkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lavalink nodes: %w", err)
	}
	pool := lavalink.NewPool(nodes, lavalinkCfg.Enabled, botUserID, lavalinkCfg.ClientName)
	transport := lavalink.NewTransport(pool, session, botUserID)
	session.AddHandler(transport.OnVoiceStateUpdate)
	session.AddHandler(transport.OnVoiceServerUpdate)
	searcher := lavalink.NewSearcher(pool, store, searchCfg.ResultLimit)

	slog.Info("Using lavalink transport", "nodes", len(nodes), "enabled", pool.Enabled())
	return &playback{
		transport:     transport,
		searcher:      searcher,
		nodes:         pool,
		reconnectCron: lavalinkCfg.ReconnectCron,
		clipResolver:  searcher,
		run: func(ctx context.Context) error {
			return pool.Run(ctx, lavalinkCfg.ReconnectCron)
		},
	}, nil
}

// newSpeaker returns nil when text-to-speech or clip storage is not configured.
func newSpeaker(ctx context.Context) (handler.Speaker, *datalayer.MinioStorage, time.Duration) {
	elevenCfg, err := config.NewElevenLabsConfigFromEnv()
	if err != nil || !elevenCfg.Enabled() {
		slog.Info("Text-to-speech disabled", "err", err)
		return nil, nil, 0
	}
	minioCfg, err := config.NewMinioConfigFromEnv()
	if err != nil {
		slog.Warn("Text-to-speech disabled: clip storage is not configured", "err", err)
		return nil, nil, 0
	}
	storage, err := datalayer.NewMinioStorage(minioCfg)
	if err != nil {
		slog.Warn("Text-to-speech disabled: failed to create minio storage", "err", err)
		return nil, nil, 0
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		slog.Warn("Text-to-speech disabled: failed to ensure minio bucket", "err", err)
		return nil, nil, 0
	}
	return tts.NewSpeaker(tts.NewClient(elevenCfg), storage, minioCfg.PresignExpiry), storage, minioCfg.PresignExpiry
}

// newHistoryReader returns nil when Postgres is not configured.
func newHistoryReader(ctx context.Context) repository.HistoryReader {
	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		slog.Info("Play history disabled", "err", err)
		return nil
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		slog.Warn("Play history disabled: failed to migrate postgres", "err", err)
		pool.Close()
		return nil
	}
	return repository.NewPostgresHistoryRepository(pool)
}

// newTranslator returns nil when translation is switched off.
func newTranslator() handler.Translator {
	cfg, err := config.NewTranslateConfigFromEnv()
	if err != nil || !cfg.Enabled {
		slog.Info("Translation disabled", "err", err)
		return nil
	}
	return translate.NewClient(cfg)
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	logConfig, err := config.NewLogConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load log config: %w", err)
	}
	slog.SetLogLoggerLevel(logConfig.Level)

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	playerConfig, err := config.NewPlayerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load player config: %w", err)
	}
	searchConfig, err := config.NewSearchConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load search config: %w", err)
	}
	rateConfig, err := config.NewRateLimitConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load rate limit config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := blocklist.NewMergedStore(
		blocklist.NewStaticStore(searchConfig.BlockedUploaders, searchConfig.BlockedTitles),
		blocklist.NewRedisStore(rdb, redisConfig.BlocklistKey),
	)

	router := handler.NewRouter(discordConfig.Prefix, handler.NewUserLimiter(rateConfig, discordConfig.OwnerID))
	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready:         handler.ReadyLog,
		MessageCreate: router.Handle,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	me, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("failed to look up bot user: %w", err)
	}

	pb, err := newPlayback(session, me.ID, playerConfig, searchConfig, store)
	if err != nil {
		return err
	}

	registry := player.NewRegistry(pb.transport,
		player.WithNotifier(&handler.ChannelNotifier{Session: session}),
		player.WithPlaybackPublisher(worker.NewRedisPlaybackPublisher(rdb, redisConfig.EventStream)),
		player.WithNowPlayingNotices(playerConfig.AnnounceNowPlaying),
		player.WithIdleTimeout(playerConfig.IdleTimeout),
		player.WithConnectTimeout(playerConfig.ConnectTimeout),
		player.WithRetryPolicy(playerConfig.MaxTrackRetries, playerConfig.MaxConsecutiveFailures),
	)

	speaker, clips, clipTTL := newSpeaker(ctx)
	music := &handler.Music{
		Registry: registry,
		Searcher: pb.searcher,
		Locate: func(guildID, userID string) (string, error) {
			return voice.UserVoiceChannel(session.State, guildID, userID)
		},
		Prefix: discordConfig.Prefix,
	}
	speech := &handler.Speech{
		Speaker:  speaker,
		Music:    music,
		Prefix:   discordConfig.Prefix,
		Resolver: pb.clipResolver,
	}
	status := &handler.Status{
		Nodes:         pb.nodes,
		ReconnectCron: pb.reconnectCron,
		Plays:         newHistoryReader(ctx),
	}
	translation := &handler.Translation{
		Translator: newTranslator(),
		Prefix:     discordConfig.Prefix,
	}
	handler.EstablishCommands(router, handler.Commands(music, speech, status, translation))

	errs := make(chan error, 2)
	go func() {
		errs <- pb.run(ctx)
	}()
	if clips != nil {
		go func() {
			errs <- schedule.Cron(ctx, clipCleanupCron, func(ctx context.Context) {
				removed, err := clips.RemoveOlderThan(ctx, tts.ClipPrefix, clipTTL)
				if err != nil {
					slog.Warn("Failed to remove expired clips", "err", err)
					return
				}
				if removed > 0 {
					slog.Info("Removed expired clips", "count", removed)
				}
			})
		}()
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()
	slog.Info("Listening for commands", "prefix", discordConfig.Prefix, "transport", playerConfig.Transport)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		if runErr == nil && ctx.Err() == nil {
			runErr = errors.New("background task exited unexpectedly")
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := registry.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Failed to release voice connections", "err", err)
	}
	return runErr
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
