package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/pexels-feed/pkg/client"
	"github.com/Sternrassler/pexels-feed/pkg/config"
	"github.com/Sternrassler/pexels-feed/pkg/feed"
	"github.com/Sternrassler/pexels-feed/pkg/logging"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

var _ feed.PageFetcher = (*client.Client)(nil)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"api-key":     "api_key",
	"base-url":    "base_url",
	"redis-addr":  "redis.addr",
	"status-addr": "status.addr",
	"debounce":    "debounce",
	"log-level":   "log.level",
	"pretty":      "log.pretty",
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "pexels-feed",
		Short: "Browse Pexels photos from the terminal",
		Long: `pexels-feed pages through the Pexels curated photos and search results.

Type a query to search (an empty line returns to curated photos).
Commands: /more loads the next page, /retry repeats a failed page,
/search <query> searches immediately, /status prints the feed state,
/quit exits.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd.Context(), v, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML)")
	flags.String("api-key", "", "Pexels API key")
	flags.String("base-url", client.DefaultBaseURL, "Pexels API base URL")
	flags.String("redis-addr", "", "Redis address for the shared cache (empty disables Redis)")
	flags.String("status-addr", config.Default().Status.Addr, "Status server listen address (empty disables it)")
	flags.Duration("debounce", feed.DefaultDebounce, "Quiet period before a typed query is searched")
	flags.String("log-level", string(logging.LevelInfo), "Log level (debug, info, warn, error, off)")
	flags.Bool("pretty", false, "Human-readable log output")
	flags.String("query", "", "Start with this search instead of curated photos")

	if err := bindFlags(v, flags); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind flags")
	}
	if err := v.BindPFlag("config_file", flags.Lookup("config")); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind config flag")
	}
	if err := v.BindPFlag("query", flags.Lookup("query")); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind query flag")
	}

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"go":      runtime.Version(),
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			if format == "json" {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("format version info: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pexels-feed %s (commit %s, %s)\n", info["version"], info["commit"], info["go"])
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func runFeed(ctx context.Context, v *viper.Viper, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(v, v.GetString("config_file"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger("cli")

	var redisClient *redis.Client
	if opts := cfg.RedisOptions(); opts != nil {
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	pexels, err := client.New(cfg.ClientConfig(redisClient))
	if err != nil {
		return fmt.Errorf("create pexels client: %w", err)
	}

	ctrl := feed.New(pexels, feed.WithDebounce(cfg.Debounce))
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Status.Addr != "" {
		handler := newStatusRouter(ctrl, pexels.RateLimiter(), redisClient)
		g.Go(func() error {
			return serveStatus(ctx, cfg.Status.Addr, handler)
		})
	}
	g.Go(func() error {
		// Leaving the console ends the program.
		defer cancel()
		return newConsole(ctrl, out).Run(ctx, in, v.GetString("query"))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}
