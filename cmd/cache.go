package cmd

import (
	"fmt"

	"Melodix/cache"
	"Melodix/config"
	"Melodix/db"

	"github.com/spf13/cobra"
)

var cacheFlush bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Check the Redis catalog cache",
	Long:  `Ping Redis, show the cached catalog listings, and optionally drop them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Load()
		fmt.Printf("Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		client, err := db.ConnectRedis(cfg)
		if err != nil {
			return fmt.Errorf("cannot connect to Redis: %w", err)
		}
		defer client.Close()

		if err := db.CheckRedis(ctx, client); err != nil {
			return fmt.Errorf("redis read/write check failed: %w", err)
		}
		fmt.Println("Redis read/write check passed.")

		cc := cache.NewCatalogCache(client, cfg.CacheTTL)
		if cacheFlush {
			n, err := cc.Invalidate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Dropped %d catalog entries.\n", n)
			return nil
		}

		keys, err := cc.Keys(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d catalog entries (ttl %s):\n", len(keys), cc.TTL())
		for _, k := range keys {
			fmt.Println("  " + k)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.Flags().BoolVarP(&cacheFlush, "flush", "f", false, "drop every cached catalog listing")
}
