package cmd

import (
	"fmt"
	"os"

	"Melodix/config"
	"Melodix/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix    string
	storageStats     bool
	storageRecursive bool
	storageDelete    bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the media bucket",
	Long:  `List, summarize and clean up the objects uploaded to the MinIO bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Load()
		fmt.Printf("MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("cannot connect to MinIO: %w", err)
		}

		if storageDelete {
			if storagePrefix == "" {
				return fmt.Errorf("--delete needs a --prefix")
			}
			n, err := store.DeletePrefix(ctx, storagePrefix)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d objects under %s\n", n, storagePrefix)
			return nil
		}

		objects, stats, err := store.ListObjects(ctx, storagePrefix, true)
		if err != nil {
			return err
		}
		switch {
		case storageRecursive:
			storage.PrintTree(os.Stdout, storagePrefix, objects)
		case storageStats:
			storage.PrintStats(os.Stdout, stats)
		default:
			storage.PrintList(os.Stdout, objects)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)

	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "", "only objects under this prefix")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "show bucket statistics")
	storageCmd.Flags().BoolVarP(&storageRecursive, "recursive", "r", false, "show the objects as a tree")
	storageCmd.Flags().BoolVarP(&storageDelete, "delete", "d", false, "delete every object under --prefix")

	storageCmd.Example = `  # list every object
  melodix storage

  # only audio uploads
  melodix storage -p "audio/"

  # bucket statistics
  melodix storage -s

  # tree view of the artwork
  melodix storage -r -p "images/"

  # remove a prefix
  melodix storage -d -p "albums/"`
}
