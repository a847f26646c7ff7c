package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/glizzus/jukebox/internal/blocklist"
	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/lavalink"
	"github.com/glizzus/jukebox/internal/player"
	"github.com/glizzus/jukebox/internal/repository"
	"github.com/glizzus/jukebox/internal/search"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

const lavalinkWait = 10 * time.Second

func newRedisClient() (*redis.Client, *config.RedisConfig, error) {
	cfg, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), cfg, nil
}

// blocklistStore merges configured entries with the Redis set when Redis is
// reachable.
func blocklistStore(ctx context.Context) blocklist.Store {
	searchCfg, err := config.NewSearchConfigFromEnv()
	if err != nil {
		searchCfg = &config.SearchConfig{}
	}
	stores := []blocklist.Store{blocklist.NewStaticStore(searchCfg.BlockedUploaders, searchCfg.BlockedTitles)}

	rdb, redisCfg, err := newRedisClient()
	if err == nil && rdb.Ping(ctx).Err() == nil {
		stores = append(stores, blocklist.NewRedisStore(rdb, redisCfg.BlocklistKey))
	} else {
		slog.Debug("Searching without the redis blocklist", "err", err)
	}
	return blocklist.NewMergedStore(stores...)
}

// lavalinkSearcher connects the configured nodes and waits briefly for one
// to become ready.
func lavalinkSearcher(ctx context.Context, store blocklist.Store, userID string, limit int) (*search.Searcher, error) {
	cfg, err := config.NewLavalinkConfigFromEnv()
	if err != nil {
		return nil, err
	}
	nodes, err := lavalink.ParseNodes(cfg)
	if err != nil {
		return nil, err
	}
	pool := lavalink.NewPool(nodes, true, userID, cfg.ClientName)
	go func() {
		if err := pool.Run(ctx, cfg.ReconnectCron); err != nil {
			slog.Warn("Lavalink pool stopped", "err", err)
		}
	}()

	deadline := time.Now().Add(lavalinkWait)
	for !pool.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	return lavalink.NewSearcher(pool, store, limit), nil
}

func printTrack(c *cli.Context, i int, t player.Track) {
	fmt.Fprintf(c.App.Writer, "%2d. %s - %s [%s]\n    %s\n", i+1, t.String(), t.Author, player.FormatDuration(t.Duration), t.Link())
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "Run a query through the search waterfall",
	ArgsUsage: "<query or link>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "lavalink", Usage: "Search through the configured Lavalink nodes instead of locally"},
		&cli.StringFlag{Name: "user-id", Usage: "Bot user ID sent to Lavalink", Value: "0"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of search results", Value: 10},
	},
	Action: func(c *cli.Context) error {
		query := strings.Join(c.Args().Slice(), " ")
		if query == "" {
			return cli.Exit("Please provide a query", 1)
		}

		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()
		store := blocklistStore(ctx)

		searcher := search.NewLocalSearcher(store, c.Int("limit"))
		if c.Bool("lavalink") {
			var err error
			if searcher, err = lavalinkSearcher(ctx, store, c.String("user-id"), c.Int("limit")); err != nil {
				return cli.Exit("Failed to set up lavalink: "+err.Error(), 1)
			}
		}

		res := searcher.Search(ctx, query)
		if !res.OK {
			return cli.Exit(fmt.Sprintf("%s: %s", res.LoadType, res.Message), 1)
		}
		log.Printf("%d tracks from %s (%s)", len(res.Tracks), res.Backend, res.LoadType)
		for i, t := range res.Tracks {
			printTrack(c, i, t)
		}
		return nil
	},
}

var historyCommand = &cli.Command{
	Name:  "history",
	Usage: "List the most recent plays for a specific guild",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "guild-id", Usage: "ID of the guild to list plays for", Required: true},
		&cli.IntFlag{Name: "limit", Usage: "Number of plays to show", Value: 10},
	},
	Action: func(c *cli.Context) error {
		pool, err := datalayer.NewPostgresPoolFromEnv(c.Context)
		if err != nil {
			return cli.Exit("Failed to connect to postgres: "+err.Error(), 1)
		}
		defer pool.Close()
		if err := datalayer.MigratePostgres(pool); err != nil {
			return cli.Exit("Failed to migrate postgres: "+err.Error(), 1)
		}

		plays, err := repository.NewPostgresHistoryRepository(pool).Recent(c.Context, c.String("guild-id"), c.Int("limit"))
		if err != nil {
			return cli.Exit("Failed to retrieve plays: "+err.Error(), 1)
		}
		if len(plays) == 0 {
			log.Println("No plays found for the specified guild.")
			return nil
		}
		for _, p := range plays {
			fmt.Fprintf(c.App.Writer, "%s  %s [%s] requested by %s\n",
				p.PlayedAt.Local().Format(time.DateTime), p.Title, player.FormatDuration(p.Duration), p.RequestedBy)
		}
		return nil
	},
}

func withEditor(action func(c *cli.Context, editor blocklist.Editor) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rdb, cfg, err := newRedisClient()
		if err != nil {
			return cli.Exit("Failed to load redis config: "+err.Error(), 1)
		}
		defer rdb.Close()
		return action(c, blocklist.NewRedisStore(rdb, cfg.BlocklistKey))
	}
}

func kindAndValue(c *cli.Context) (blocklist.Kind, string, error) {
	kind, err := blocklist.ParseKind(c.String("kind"))
	if err != nil {
		return "", "", cli.Exit(err.Error(), 1)
	}
	value := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if value == "" {
		return "", "", cli.Exit("Please provide a value", 1)
	}
	return kind, value, nil
}

var kindFlag = &cli.StringFlag{Name: "kind", Usage: "uploader or title", Value: string(blocklist.KindUploader)}

var blocklistCommand = &cli.Command{
	Name:  "blocklist",
	Usage: "Manage the search blocklist stored in Redis",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "Show every blocked uploader and title fragment",
			Action: withEditor(func(c *cli.Context, editor blocklist.Editor) error {
				entries, err := editor.Entries(c.Context)
				if err != nil {
					return cli.Exit("Failed to read blocklist: "+err.Error(), 1)
				}
				if entries.Empty() {
					log.Println("The blocklist is empty.")
					return nil
				}
				for _, u := range entries.Uploaders {
					fmt.Fprintf(c.App.Writer, "uploader\t%s\n", u)
				}
				for _, t := range entries.Titles {
					fmt.Fprintf(c.App.Writer, "title\t%s\n", t)
				}
				return nil
			}),
		},
		{
			Name:      "add",
			Usage:     "Block an uploader or title fragment",
			ArgsUsage: "<value>",
			Flags:     []cli.Flag{kindFlag},
			Action: withEditor(func(c *cli.Context, editor blocklist.Editor) error {
				kind, value, err := kindAndValue(c)
				if err != nil {
					return err
				}
				if err := editor.Add(c.Context, kind, value); err != nil {
					return cli.Exit("Failed to update blocklist: "+err.Error(), 1)
				}
				log.Printf("Blocked %s %q.", kind, value)
				return nil
			}),
		},
		{
			Name:      "remove",
			Usage:     "Unblock an uploader or title fragment",
			ArgsUsage: "<value>",
			Flags:     []cli.Flag{kindFlag},
			Action: withEditor(func(c *cli.Context, editor blocklist.Editor) error {
				kind, value, err := kindAndValue(c)
				if err != nil {
					return err
				}
				if err := editor.Remove(c.Context, kind, value); err != nil {
					return cli.Exit("Failed to update blocklist: "+err.Error(), 1)
				}
				log.Printf("Unblocked %s %q.", kind, value)
				return nil
			}),
		},
	},
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "jukebox-cli",
		Description: "A development CLI tool for testing jukebox without Discord",
		Commands:    []*cli.Command{searchCommand, historyCommand, blocklistCommand},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
