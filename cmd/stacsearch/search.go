package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stacsearch/pkg/auth"
	"stacsearch/pkg/config"
	"stacsearch/pkg/logger"
	"stacsearch/pkg/query"
	"stacsearch/pkg/searcher"
	"stacsearch/pkg/ui"
)

var (
	// Search command flags
	collectionID string
	itemIDs      []string
	bboxArg      string
	intersects   string
	datetimeArg  string
	properties   []string
	sortFields   []string
	limitArg     int
	foundOnly    bool
	savePath     string
	download     bool
	assetKeys    []string
	resumeFlag   bool
	forceRestart bool
	profileName  string
	apiURL       string
	pageSize     int
	outputDir    string
	concurrent   int
	rateLimit    int
	maxRetries   int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a STAC API for items",
	Long: `Search a STAC API for items matching spatial, temporal and property
filters.

Property filters use a compact expression syntax combining a field name, an
operator (=, <, <=, >, >=) and a value:

  eo:cloud_cover<10
  platform=sentinel-2a

When --ids is given together with --collection, the named items are fetched
directly and all other filters are ignored.`,
	Example: `  # Count matching items without fetching them
  stacsearch search --collection sentinel-s2-l2a --found

  # Search by bounding box and cloud cover
  stacsearch search --bbox "12.0,52.0,13.0,53.0" -p "eo:cloud_cover<10" --limit 50

  # Temporal range with sort, saved to a file
  stacsearch search --datetime 2019-06-01/2019-06-30 --sort "-properties.datetime" --save results.json

  # Fetch specific items directly
  stacsearch search --collection sentinel-s2-l2a --ids S2A_34JCL_20190620_0,S2A_34JCL_20190623_0

  # Search and download thumbnails
  stacsearch search --bbox "12.0,52.0,13.0,53.0" --limit 10 --download --assets thumbnail`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&collectionID, "collection", "", "restrict search to one collection")
	searchCmd.Flags().StringSliceVar(&itemIDs, "ids", nil, "fetch specific item IDs (requires --collection)")
	searchCmd.Flags().StringVar(&bboxArg, "bbox", "", "bounding box as \"west,south,east,north\"")
	searchCmd.Flags().StringVar(&intersects, "intersects", "", "GeoJSON geometry, inline or a file path")
	searchCmd.Flags().StringVar(&datetimeArg, "datetime", "", "single date or begin/end range")
	searchCmd.Flags().StringArrayVarP(&properties, "property", "p", nil, "property filter expression (repeatable)")
	searchCmd.Flags().StringArrayVar(&sortFields, "sort", nil, "sort field, prefix with - for descending (repeatable)")
	searchCmd.Flags().IntVar(&limitArg, "limit", 0, "maximum number of items to fetch (0 = all)")
	searchCmd.Flags().BoolVar(&foundOnly, "found", false, "only print the number of matching items")
	searchCmd.Flags().StringVar(&savePath, "save", "", "save results to a GeoJSON file")
	searchCmd.Flags().BoolVar(&download, "download", false, "download assets for all fetched items")
	searchCmd.Flags().StringSliceVar(&assetKeys, "assets", nil, "asset keys to download (default from config)")
	searchCmd.Flags().BoolVar(&resumeFlag, "resume", false, "resume an interrupted download")
	searchCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "restart download, ignoring existing checkpoint")
	searchCmd.Flags().StringVarP(&profileName, "profile", "a", "", "use a specific stored credential profile")
	searchCmd.Flags().StringVar(&apiURL, "api-url", "", "search API base URL")
	searchCmd.Flags().IntVar(&pageSize, "page-size", 0, "number of items requested per page")
	searchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	searchCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	searchCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	searchCmd.Flags().IntVar(&maxRetries, "max-retries", -1, "maximum number of retry attempts")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)
	logger.WithField("version", version).Info("stacsearch starting")

	token := resolveToken(cfg)

	q, err := buildQuery()
	if err != nil {
		ui.PrintError("Invalid query", err.Error())
		os.Exit(1)
	}

	s := searcher.New(cfg, token)

	if foundOnly {
		found, err := s.Found(q)
		if err != nil {
			logger.WithError(err).Error("Count search failed")
			ui.PrintError("Search failed", err.Error())
			os.Exit(1)
		}
		fmt.Println(found)
		return nil
	}

	ic, err := s.Search(q, limitArg)
	if err != nil {
		logger.WithError(err).Error("Search failed")
		ui.PrintError("Search failed", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Found", fmt.Sprintf("%d", ic.Found))
	ui.PrintInfo("Fetched", fmt.Sprintf("%d", ic.Len()))

	for _, item := range ic.Features {
		fmt.Printf("%s  %s  %s\n", item.ID, item.Datetime(), ui.Dim(item.Collection))
	}

	if savePath != "" {
		if err := ic.Save(savePath); err != nil {
			ui.PrintError("Failed to save results", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Saved " + savePath)
	}

	if download {
		if err := runDownload(cfg, token, ic, downloadSession(savePath)); err != nil {
			ui.PrintError("Download failed", err.Error())
			os.Exit(1)
		}
	}

	return nil
}

// buildQuery assembles the search query from command line flags
func buildQuery() (query.Query, error) {
	q := query.Query{
		Datetime:   datetimeArg,
		Properties: properties,
		Sort:       sortFields,
		IDs:        itemIDs,
		Collection: collectionID,
	}

	if bboxArg != "" {
		bbox, err := query.ParseBbox(bboxArg)
		if err != nil {
			return q, err
		}
		q.Bbox = bbox
	}

	if intersects != "" {
		geometry, err := readGeometry(intersects)
		if err != nil {
			return q, err
		}
		q.Intersects = geometry
	}

	return q, nil
}

// readGeometry resolves the --intersects argument, which is either a path to
// a GeoJSON file or inline GeoJSON
func readGeometry(arg string) (json.RawMessage, error) {
	raw := []byte(arg)
	if _, err := os.Stat(arg); err == nil {
		raw, err = os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read geometry file: %w", err)
		}
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("intersects is not valid GeoJSON")
	}

	// A Feature wraps its geometry; unwrap so the API gets a bare geometry
	var feature struct {
		Type     string          `json:"type"`
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &feature); err == nil && feature.Type == "Feature" && feature.Geometry != nil {
		return feature.Geometry, nil
	}

	return raw, nil
}

// loadConfig builds the flags map and loads layered configuration
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if apiURL != "" {
		flags["api-url"] = apiURL
	}
	if pageSize > 0 {
		flags["page-size"] = pageSize
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if rateLimit > 0 {
		flags["rate-limit"] = rateLimit
	}
	if maxRetries >= 0 {
		flags["max-retries"] = maxRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	return config.Load(configFile, flags)
}

// resolveToken finds an API token, preferring an explicit profile. Searches
// work unauthenticated against public APIs, so a missing token is not fatal.
func resolveToken(cfg *config.Config) string {
	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Debug("Credential manager unavailable")
		return ""
	}

	if profileName != "" {
		profile, err := manager.Retrieve(profileName)
		if err != nil {
			ui.PrintError("Profile not found", profileName)
			ui.PrintInfo("Available profiles", "Use 'stacsearch auth list' to see stored profiles")
			os.Exit(1)
		}
		if profile.BaseURL != "" && apiURL == "" {
			cfg.API.URL = profile.BaseURL
		}
		logger.WithField("profile", profile.Name).Info("Using stored credentials")
		return profile.Token
	}

	profile, err := manager.RetrieveDefault()
	if err != nil {
		logger.Debug("No stored credentials, searching unauthenticated")
		return ""
	}

	if profile.BaseURL != "" && apiURL == "" {
		cfg.API.URL = profile.BaseURL
	}
	logger.WithField("profile", profile.Name).Info("Using stored credentials")
	return profile.Token
}

// downloadSession derives a checkpoint session name from the save path
func downloadSession(savePath string) string {
	if savePath == "" {
		return "search"
	}
	base := strings.TrimSuffix(savePath, ".json")
	base = strings.TrimSuffix(base, ".geojson")
	return sanitizeSession(base)
}

// sanitizeSession strips path separators so the session name is a safe
// filename component
func sanitizeSession(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ".", "_")
	return replacer.Replace(name)
}
