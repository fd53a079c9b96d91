package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stacsearch/pkg/logger"
	"stacsearch/pkg/stac"
	"stacsearch/pkg/ui"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Work with previously saved search results",
	Long: `Load a saved GeoJSON results file and print its contents, or download
assets for the items it holds without re-running the search.`,
	Example: `  # Show the items in a saved results file
  stacsearch load results.json

  # Download thumbnails for saved results
  stacsearch load results.json --download --assets thumbnail

  # Resume an interrupted download
  stacsearch load results.json --download --resume`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&download, "download", false, "download assets for all loaded items")
	loadCmd.Flags().StringSliceVar(&assetKeys, "assets", nil, "asset keys to download (default from config)")
	loadCmd.Flags().BoolVar(&resumeFlag, "resume", false, "resume an interrupted download")
	loadCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "restart download, ignoring existing checkpoint")
	loadCmd.Flags().StringVarP(&profileName, "profile", "a", "", "use a specific stored credential profile")
	loadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	loadCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	loadCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)

	ic, err := stac.Load(path)
	if err != nil {
		ui.PrintError("Failed to load results file", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("File", path)
	ui.PrintInfo("Found", fmt.Sprintf("%d", ic.Found))
	ui.PrintInfo("Items", fmt.Sprintf("%d", ic.Len()))

	for _, item := range ic.Features {
		fmt.Printf("%s  %s  %s\n", item.ID, item.Datetime(), ui.Dim(item.Collection))
	}

	if download {
		token := resolveToken(cfg)
		session := sanitizeSession(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if err := runDownload(cfg, token, ic, session); err != nil {
			ui.PrintError("Download failed", err.Error())
			os.Exit(1)
		}
	}

	return nil
}
