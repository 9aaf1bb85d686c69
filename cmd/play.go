package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Melodix/catalog"
	"Melodix/config"
	"Melodix/console"
	"Melodix/core/audio"
	"Melodix/core/feed"
	"Melodix/logger"
	"Melodix/playback"

	"github.com/spf13/cobra"
)

var (
	playAPIURL string
	playConfig string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Open the player console",
	Long: `Open an interactive console that plays the catalog served by a
Melodix server. Settings come from player.toml; see --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.PlayerConfig
			err error
		)
		if playConfig != "" {
			cfg, err = config.LoadPlayerFrom(playConfig)
		} else {
			cfg, err = config.LoadPlayer()
		}
		if err != nil {
			return fmt.Errorf("load player config: %w", err)
		}
		if playAPIURL != "" {
			cfg.APIURL = playAPIURL
		}

		// Logs go to the file only so they do not tear the prompt.
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
			FileOnly:   true,
		})
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPlayer(ctx, cfg)
	},
}

func runPlayer(ctx context.Context, cfg *config.PlayerConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := catalog.NewClient(cfg.APIURL, cfg.Token)

	player := audio.NewPlayer(audio.SpeakerOutput())
	defer player.Close()

	sess := playback.New(player, playback.WithVolume(cfg.Volume))
	runDone := make(chan error, 1)
	go func() { runDone <- sess.Run(ctx) }()

	con := console.New(os.Stdout, client, sess, cfg.SearchDebounce)
	defer con.Close()

	go con.Watch(sess.Subscribe())

	if err := con.Reload(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if feedURL, err := catalog.FeedURL(cfg.APIURL); err != nil {
		logger.Warn("catalog feed disabled", logger.ErrorField(err))
	} else {
		go catalog.Follow(ctx, feedURL, func(ev feed.Event) {
			logger.Debug("catalog changed", logger.String("type", string(ev.Type)), logger.String("id", ev.ID))
			if ev.Type != feed.SongAdded && ev.Type != feed.SongRemoved {
				return
			}
			if err := con.Reload(ctx); err != nil {
				logger.Warn("catalog reload failed", logger.ErrorField(err))
			}
		})
	}

	fmt.Printf("Connected to %s. Type help for commands.\n", client.BaseURL())
	err := console.Prompt(ctx, con)

	cancel()
	<-runDone
	return err
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringVar(&playAPIURL, "api", "", "catalog API URL, overrides api_url")
	playCmd.Flags().StringVarP(&playConfig, "config", "c", "", "player.toml to read instead of the default locations")
}
